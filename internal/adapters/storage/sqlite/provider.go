// Package sqlite provides SQLite storage adapter for the gateway.
package sqlite

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tjfontaine/enrichment-gateway/internal/core/ports"
	"github.com/tjfontaine/enrichment-gateway/internal/storage/sqldb"
)

// Provider implements ports.StorageProvider using SQLite.
// It wraps the sqldb implementation.
type Provider struct {
	*sqldb.Store
}

// NewProvider creates a new SQLite storage provider. The parent directory of
// a file path is created when missing.
func NewProvider(path string) (*Provider, error) {
	if dir := filepath.Dir(path); path != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := sqldb.NewSQLite(path)
	if err != nil {
		return nil, err
	}

	return &Provider{
		Store: store,
	}, nil
}

// Ensure Provider implements ports.StorageProvider at compile time.
var _ ports.StorageProvider = (*Provider)(nil)
