// Package runtime provides the core Gateway struct and lifecycle management
// for the enrichment gateway.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tjfontaine/enrichment-gateway/internal/api/pipelining"
	"github.com/tjfontaine/enrichment-gateway/internal/core/ports"
	"github.com/tjfontaine/enrichment-gateway/internal/pipeline"
	"github.com/tjfontaine/enrichment-gateway/internal/pkg/config"
	"github.com/tjfontaine/enrichment-gateway/internal/scheduler"
	"github.com/tjfontaine/enrichment-gateway/internal/server"
	"github.com/tjfontaine/enrichment-gateway/internal/storage"
)

// Gateway is the main entry point for running the enrichment gateway.
// It manages configuration, storage, the chain runner, the expiry sweep and
// the HTTP server lifecycle. Gateway can be embedded in larger applications
// or run standalone.
type Gateway struct {
	// Dependencies (injected via options)
	config    ports.ConfigProvider
	storage   ports.StorageProvider
	executor  ports.StepExecutor
	converter ports.MarkupConverter
	logger    *slog.Logger

	// Swapped on reload; read per request.
	runner     atomic.Pointer[pipeline.Runner]
	runTimeout atomic.Int64

	// Internal state
	server   *server.Server
	listener net.Listener
	expiry   *scheduler.ExpiryScheduler
	port     int
	started  bool

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.RWMutex
}

// New creates a new Gateway with the given options.
// A config provider is required. Without a storage option the store is
// opened from the storage section of the loaded configuration.
func New(opts ...Option) (*Gateway, error) {
	gw := &Gateway{
		logger: slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(gw); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	// Validate required dependencies
	if gw.config == nil {
		return nil, errors.New("config provider required (use WithFileConfig or WithConfigProvider)")
	}

	return gw, nil
}

// Start loads configuration, opens storage, starts the HTTP server and the
// expiry sweep, and begins watching configuration. It returns once the
// server is listening.
func (g *Gateway) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started {
		return errors.New("gateway already started")
	}

	g.ctx, g.cancel = context.WithCancel(ctx)

	// Load initial config
	cfg, err := g.config.Load(g.ctx)
	if err != nil {
		g.cancel()
		return fmt.Errorf("load config: %w", err)
	}

	openedStorage := false
	if g.storage == nil {
		store, err := storage.Open(cfg.Storage)
		if err != nil {
			g.cancel()
			return fmt.Errorf("open storage: %w", err)
		}
		g.storage = store
		openedStorage = true
	}

	g.applyPipelineConfig(cfg)

	if err := g.startServer(cfg); err != nil {
		// Storage opened from configuration is released so a later Start
		// can open it again. Caller-supplied storage stays with the caller.
		if openedStorage {
			if cerr := g.storage.Close(); cerr != nil {
				g.logger.Error("failed to close storage", slog.String("error", cerr.Error()))
			}
			g.storage = nil
		}
		g.cancel()
		return fmt.Errorf("start server: %w", err)
	}

	if cfg.Expiry.Enabled {
		g.expiry = scheduler.NewExpiryScheduler(scheduler.ExpiryConfig{
			Store:     g.storage,
			Interval:  config.Duration(cfg.Expiry.Interval, scheduler.DefaultInterval),
			Retention: config.Duration(cfg.Expiry.Retention, 0),
			Logger:    g.logger,
		})
		g.expiry.Start(g.ctx)
	}

	// Watch for config changes
	go g.watchConfig()

	g.started = true
	g.port = cfg.Server.Port

	g.logger.Info("gateway started",
		slog.String("addr", g.listener.Addr().String()),
		slog.String("storage", cfg.Storage.Type),
		slog.Bool("converter", cfg.Converter.BaseURL != ""),
		slog.Bool("expiry", cfg.Expiry.Enabled))

	return nil
}

// Shutdown gracefully stops the gateway.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.logger.Info("shutting down gateway")

	if g.cancel != nil {
		g.cancel()
	}

	if g.expiry != nil {
		g.expiry.Stop()
	}

	// Stop HTTP server
	if g.server != nil {
		if err := g.server.Shutdown(ctx); err != nil {
			g.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
			return err
		}
	}

	// Close resources
	if g.storage != nil {
		if err := g.storage.Close(); err != nil {
			g.logger.Error("failed to close storage", slog.String("error", err.Error()))
		}
	}

	if g.config != nil {
		if err := g.config.Close(); err != nil {
			g.logger.Error("failed to close config", slog.String("error", err.Error()))
		}
	}

	g.started = false
	g.logger.Info("gateway shutdown complete")
	return nil
}

// Addr returns the address the HTTP server listens on, or nil before Start.
func (g *Gateway) Addr() net.Addr {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.listener == nil {
		return nil
	}
	return g.listener.Addr()
}

// Runner returns the chain runner built from the current configuration.
func (g *Gateway) Runner() ports.PipelineRunner {
	return g.runner.Load()
}

// RunTimeout returns the current overall deadline for one chain.
func (g *Gateway) RunTimeout() time.Duration {
	return time.Duration(g.runTimeout.Load())
}

// watchConfig watches for config changes and reloads.
func (g *Gateway) watchConfig() {
	onChange := func(newCfg *config.Config) {
		g.logger.Info("config changed, reloading")
		if err := g.reload(newCfg); err != nil {
			g.logger.Error("failed to reload", slog.String("error", err.Error()))
		}
	}

	if err := g.config.Watch(g.ctx, onChange); err != nil {
		if !errors.Is(err, context.Canceled) {
			g.logger.Error("config watch failed", slog.String("error", err.Error()))
		}
	}
}

// reload applies pipeline settings from cfg. Chains already running keep
// the runner they started with. Server port and storage need a restart.
func (g *Gateway) reload(cfg *config.Config) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	if g.started && cfg.Server.Port != g.port {
		g.logger.Warn("server port change requires restart",
			slog.Int("current", g.port),
			slog.Int("configured", cfg.Server.Port))
	}

	g.applyPipelineConfig(cfg)

	g.logger.Info("reload complete",
		slog.String("step_timeout", cfg.Pipeline.StepTimeout),
		slog.String("run_timeout", cfg.Pipeline.RunTimeout),
		slog.Bool("converter", cfg.Converter.BaseURL != ""))

	return nil
}

func (g *Gateway) applyPipelineConfig(cfg *config.Config) {
	g.runner.Store(pipeline.NewRunnerFromConfig(cfg, pipeline.RunnerConfig{
		Executor:  g.executor,
		Converter: g.converter,
		Logger:    g.logger,
	}))
	g.runTimeout.Store(int64(config.Duration(cfg.Pipeline.RunTimeout, 0)))
}

// startServer binds the listener synchronously so port errors surface from
// Start, then serves in the background.
func (g *Gateway) startServer(cfg *config.Config) error {
	g.logger.Debug("starting HTTP server", slog.Int("port", cfg.Server.Port))

	l, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", cfg.Server.Port, err)
	}

	srv := server.New(cfg.Server.Port, g.logger)

	handler := pipelining.NewHandler(pipelining.Config{
		Runner:     g.Runner,
		Store:      g.storage,
		RunTimeout: g.RunTimeout,
		Logger:     g.logger,
	})
	handler.Register(srv.Router)

	g.server = srv
	g.listener = l

	go func() {
		if err := srv.Serve(l); err != nil {
			g.logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}
