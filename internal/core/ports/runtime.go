package ports

import (
	"context"

	"github.com/tjfontaine/enrichment-gateway/internal/pkg/config"
)

// ConfigProvider loads and manages configuration.
// Implementations: file-based (default).
type ConfigProvider interface {
	Load(ctx context.Context) (*config.Config, error)
	Watch(ctx context.Context, onChange func(*config.Config)) error
	Close() error
}

// StorageProvider manages pipeline storage for the gateway runtime.
// Implementations: SQLite (default), in-memory.
type StorageProvider interface {
	PipelineStore
}
