// Package scheduler runs background maintenance jobs owned by the gateway
// lifecycle.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tjfontaine/enrichment-gateway/internal/core/domain"
	"github.com/tjfontaine/enrichment-gateway/internal/core/ports"
)

// DefaultInterval is the time between two expiry sweeps.
const DefaultInterval = 24 * time.Hour

// ExpiryScheduler periodically deletes pipeline definitions that are not
// marked persistent and are older than the retention window.
type ExpiryScheduler struct {
	store     ports.PipelineStore
	interval  time.Duration
	retention time.Duration
	clock     func() time.Time
	logger    *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// ExpiryConfig configures an ExpiryScheduler.
type ExpiryConfig struct {
	Store     ports.PipelineStore
	Interval  time.Duration    // default 24h
	Retention time.Duration    // default one week
	Clock     func() time.Time // default time.Now
	Logger    *slog.Logger
}

// NewExpiryScheduler creates a scheduler. It does nothing until Start.
func NewExpiryScheduler(cfg ExpiryConfig) *ExpiryScheduler {
	s := &ExpiryScheduler{
		store:     cfg.Store,
		interval:  cfg.Interval,
		retention: cfg.Retention,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	if s.retention <= 0 {
		s.retention = domain.DefaultRetention
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Sweep deletes every expired definition in one batch and returns how many
// were removed. Running it again without new definitions removes nothing.
func (s *ExpiryScheduler) Sweep(ctx context.Context) (int, error) {
	defs, err := s.store.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pipelines: %w", err)
	}

	now := s.clock()
	var expired []string
	for _, def := range defs {
		if def.Expired(now, s.retention) {
			expired = append(expired, def.ID)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}

	if err := s.store.DeleteBatch(ctx, expired); err != nil {
		return 0, fmt.Errorf("delete expired pipelines: %w", err)
	}
	return len(expired), nil
}

// Start launches the sweep loop. The first sweep happens one interval after
// Start. Calling Start on a running scheduler does nothing.
func (s *ExpiryScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx, s.done)

	s.logger.Info("expiry scheduler started",
		slog.Duration("interval", s.interval),
		slog.Duration("retention", s.retention),
	)
}

// Stop stops the loop and waits for an in-flight sweep to finish.
func (s *ExpiryScheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("expiry scheduler stopped")
}

func (s *ExpiryScheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				s.logger.Error("pipeline expiry sweep failed", slog.String("error", err.Error()))
				continue
			}
			s.logger.Info("pipeline expiry sweep completed", slog.Int("deleted", n))
		}
	}
}
