// Package storage selects the pipeline store backend from configuration.
package storage

import (
	"fmt"

	"github.com/tjfontaine/enrichment-gateway/internal/adapters/storage/sqlite"
	"github.com/tjfontaine/enrichment-gateway/internal/core/ports"
	"github.com/tjfontaine/enrichment-gateway/internal/pkg/config"
	"github.com/tjfontaine/enrichment-gateway/internal/storage/memory"
)

// Open returns the store named by cfg.Type. An empty type means sqlite.
func Open(cfg config.StorageConfig) (ports.StorageProvider, error) {
	switch cfg.Type {
	case "", "sqlite":
		path := cfg.SQLite.Path
		if path == "" {
			path = "./data/pipelines.db"
		}
		provider, err := sqlite.NewProvider(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite storage: %w", err)
		}
		return provider, nil
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
