package runtime

import (
	"fmt"
	"log/slog"

	"github.com/tjfontaine/enrichment-gateway/internal/adapters/config/file"
	"github.com/tjfontaine/enrichment-gateway/internal/adapters/storage/sqlite"
	"github.com/tjfontaine/enrichment-gateway/internal/core/ports"
	"github.com/tjfontaine/enrichment-gateway/internal/storage/memory"
)

// Option is a functional option for configuring a Gateway.
type Option func(*Gateway) error

// WithFileConfig uses file-based configuration with hot-reload (default).
// The path should point to a config.yaml file that will be watched for changes.
func WithFileConfig(path string) Option {
	return func(g *Gateway) error {
		provider, err := file.NewProvider(path, g.logger)
		if err != nil {
			return fmt.Errorf("create file config provider: %w", err)
		}
		g.config = provider
		return nil
	}
}

// WithConfigProvider sets a custom config provider.
// For advanced use cases where you need full control over config loading.
func WithConfigProvider(provider ports.ConfigProvider) Option {
	return func(g *Gateway) error {
		g.config = provider
		return nil
	}
}

// WithSQLite uses SQLite storage at path, overriding storage.type from the
// configuration.
func WithSQLite(path string) Option {
	return func(g *Gateway) error {
		store, err := sqlite.NewProvider(path)
		if err != nil {
			return fmt.Errorf("create sqlite storage: %w", err)
		}
		g.storage = store
		return nil
	}
}

// WithMemoryStorage keeps pipeline templates in memory. They are lost on
// restart.
func WithMemoryStorage() Option {
	return func(g *Gateway) error {
		g.storage = memory.New()
		return nil
	}
}

// WithStorageProvider sets a custom storage provider.
func WithStorageProvider(provider ports.StorageProvider) Option {
	return func(g *Gateway) error {
		g.storage = provider
		return nil
	}
}

// WithStepExecutor replaces the HTTP step executor. Reloads keep it.
func WithStepExecutor(executor ports.StepExecutor) Option {
	return func(g *Gateway) error {
		g.executor = executor
		return nil
	}
}

// WithConverter replaces the markup converter client configured by
// converter.base_url. Reloads keep it.
func WithConverter(converter ports.MarkupConverter) Option {
	return func(g *Gateway) error {
		g.converter = converter
		return nil
	}
}

// WithLogger sets a custom logger. Place it before options that log.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) error {
		g.logger = logger
		return nil
	}
}
