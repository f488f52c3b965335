package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tjfontaine/enrichment-gateway/internal/core/domain"
	"github.com/tjfontaine/enrichment-gateway/internal/core/ports"
)

func TestNewProvider(t *testing.T) {
	// Use in-memory SQLite for testing
	provider, err := NewProvider(":memory:")
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	if provider == nil {
		t.Fatal("NewProvider returned nil")
	}

	// Verify it implements StorageProvider
	var _ ports.StorageProvider = provider

	// Clean up
	provider.Close()
}

func TestNewProvider_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data", "pipelines.db")

	provider, err := NewProvider(path)
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	defer provider.Close()

	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Errorf("database directory not created: %v", err)
	}
}

func TestNewProvider_InvalidPath(t *testing.T) {
	// A regular file cannot be used as a parent directory.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewProvider(filepath.Join(blocker, "test.db"))
	if err == nil {
		t.Error("Expected error for invalid path")
	}
}

func TestProvider_RoundTripsDefinitions(t *testing.T) {
	provider, err := NewProvider(":memory:")
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	defer provider.Close()

	ctx := context.Background()
	def := &domain.PipelineDefinition{
		Label: "single",
		Steps: []domain.SerializedStep{{Method: "POST", Endpoint: "http://svc.local/run"}},
	}
	if err := provider.SavePipeline(ctx, def); err != nil {
		t.Fatalf("SavePipeline failed: %v", err)
	}

	got, err := provider.GetPipeline(ctx, def.ID)
	if err != nil {
		t.Fatalf("GetPipeline failed: %v", err)
	}
	if got.Steps[0].Endpoint != "http://svc.local/run" {
		t.Errorf("Endpoint = %q", got.Steps[0].Endpoint)
	}
}

func TestProvider_Close(t *testing.T) {
	provider, _ := NewProvider(":memory:")

	err := provider.Close()
	if err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
