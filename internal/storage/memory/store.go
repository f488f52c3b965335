package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/tjfontaine/enrichment-gateway/internal/core/domain"
	"github.com/tjfontaine/enrichment-gateway/internal/core/ports"
)

// Store is an in-memory implementation of PipelineStore
type Store struct {
	mu        sync.RWMutex
	pipelines map[string]*domain.PipelineDefinition
	now       func() time.Time
}

var _ ports.PipelineStore = (*Store)(nil)

// New creates a new in-memory store
func New() *Store {
	return &Store{
		pipelines: make(map[string]*domain.PipelineDefinition),
		now:       time.Now,
	}
}

func (s *Store) SavePipeline(ctx context.Context, def *domain.PipelineDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if def.ID == "" {
		def.ID = ulid.Make().String()
	}
	if _, exists := s.pipelines[def.ID]; exists {
		return fmt.Errorf("pipeline %s already exists", def.ID)
	}
	if def.CreatedAt == 0 {
		def.CreatedAt = s.now().UnixMilli()
	}

	s.pipelines[def.ID] = def.Clone()
	return nil
}

func (s *Store) GetPipeline(ctx context.Context, id string) (*domain.PipelineDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, exists := s.pipelines[id]
	if !exists {
		return nil, fmt.Errorf("pipeline %s: %w", id, domain.ErrNotFound)
	}

	return def.Clone(), nil
}

func (s *Store) UpdatePipeline(ctx context.Context, def *domain.PipelineDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.pipelines[def.ID]
	if !exists {
		return fmt.Errorf("pipeline %s: %w", def.ID, domain.ErrNotFound)
	}

	updated := def.Clone()
	updated.OwnerID = existing.OwnerID
	updated.CreatedAt = existing.CreatedAt
	s.pipelines[def.ID] = updated
	return nil
}

func (s *Store) ListPipelines(ctx context.Context, opts ports.ListOptions) ([]*domain.PipelineDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PipelineDefinition
	for _, def := range s.pipelines {
		if opts.OwnerID != "" && def.OwnerID != opts.OwnerID {
			continue
		}
		if opts.Visibility != "" && def.Visibility != opts.Visibility {
			continue
		}
		result = append(result, def.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt > result[j].CreatedAt
		}
		return result[i].ID > result[j].ID
	})

	// Apply pagination
	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return []*domain.PipelineDefinition{}, nil
		}
		result = result[opts.Offset:]
	}
	if limit := opts.PageSize(); limit < len(result) {
		result = result[:limit]
	}

	return result, nil
}

func (s *Store) ListAll(ctx context.Context) ([]*domain.PipelineDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.PipelineDefinition, 0, len(s.pipelines))
	for _, def := range s.pipelines {
		result = append(result, def.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt < result[j].CreatedAt })
	return result, nil
}

func (s *Store) DeletePipeline(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pipelines[id]; !exists {
		return fmt.Errorf("pipeline %s: %w", id, domain.ErrNotFound)
	}

	delete(s.pipelines, id)
	return nil
}

func (s *Store) DeleteBatch(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.pipelines, id)
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}
