package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/tjfontaine/enrichment-gateway/internal/core/domain"
	"github.com/tjfontaine/enrichment-gateway/internal/core/ports"
)

func newDefinition(label, owner string, createdAt int64) *domain.PipelineDefinition {
	return &domain.PipelineDefinition{
		Label:      label,
		OwnerID:    owner,
		Visibility: domain.VisibilityPrivate,
		CreatedAt:  createdAt,
		Steps: []domain.SerializedStep{
			{Method: "POST", Endpoint: "http://ner.local/annotate", Headers: map[string]string{"Accept": "text/turtle"}},
		},
	}
}

func TestMemoryStore_SaveAndGet(t *testing.T) {
	store := New()
	ctx := context.Background()

	def := newDefinition("ner", "user-1", 0)
	if err := store.SavePipeline(ctx, def); err != nil {
		t.Fatalf("SavePipeline() error = %v", err)
	}
	if def.ID == "" || def.CreatedAt == 0 {
		t.Fatalf("SavePipeline() did not assign id/created_at: %+v", def)
	}

	got, err := store.GetPipeline(ctx, def.ID)
	if err != nil {
		t.Fatalf("GetPipeline() error = %v", err)
	}
	if got.Label != "ner" {
		t.Errorf("Label = %q, want ner", got.Label)
	}

	// Mutating the returned copy must not affect the store.
	got.Steps[0].Endpoint = "http://changed.local"
	again, _ := store.GetPipeline(ctx, def.ID)
	if again.Steps[0].Endpoint != "http://ner.local/annotate" {
		t.Errorf("store was mutated through a returned copy: %q", again.Steps[0].Endpoint)
	}

	if err := store.SavePipeline(ctx, def); err == nil {
		t.Error("SavePipeline() with duplicate id should fail")
	}
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	store := New()
	if _, err := store.GetPipeline(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetPipeline() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_Update(t *testing.T) {
	store := New()
	ctx := context.Background()

	def := newDefinition("before", "user-1", 100)
	if err := store.SavePipeline(ctx, def); err != nil {
		t.Fatal(err)
	}

	update := &domain.PipelineDefinition{ID: def.ID, Label: "after", Persist: true, Steps: def.Steps}
	if err := store.UpdatePipeline(ctx, update); err != nil {
		t.Fatalf("UpdatePipeline() error = %v", err)
	}

	got, _ := store.GetPipeline(ctx, def.ID)
	if got.Label != "after" || !got.Persist {
		t.Errorf("after update = %+v", got)
	}
	if got.OwnerID != "user-1" || got.CreatedAt != 100 {
		t.Errorf("owner/created_at should be preserved, got %q/%d", got.OwnerID, got.CreatedAt)
	}

	if err := store.UpdatePipeline(ctx, &domain.PipelineDefinition{ID: "nope"}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("UpdatePipeline(missing) error = %v", err)
	}
}

func TestMemoryStore_ListPipelines(t *testing.T) {
	store := New()
	ctx := context.Background()

	for i, owner := range []string{"alice", "bob", "alice", "alice", "alice"} {
		if err := store.SavePipeline(ctx, newDefinition("p", owner, int64(i+1))); err != nil {
			t.Fatal(err)
		}
	}

	defs, err := store.ListPipelines(ctx, ports.ListOptions{OwnerID: "alice", Limit: 3})
	if err != nil {
		t.Fatalf("ListPipelines() error = %v", err)
	}
	if len(defs) != 3 {
		t.Fatalf("ListPipelines() count = %d, want 3", len(defs))
	}
	if defs[0].CreatedAt != 5 {
		t.Errorf("first CreatedAt = %d, want newest (5)", defs[0].CreatedAt)
	}

	defs, _ = store.ListPipelines(ctx, ports.ListOptions{OwnerID: "alice", Offset: 10})
	if len(defs) != 0 {
		t.Errorf("offset past end count = %d, want 0", len(defs))
	}
}

func TestMemoryStore_ListPipelinesDefaultLimit(t *testing.T) {
	store := New()
	ctx := context.Background()

	total := ports.DefaultListLimit + 5
	for i := range total {
		if err := store.SavePipeline(ctx, newDefinition("p", "alice", int64(i+1))); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name string
		opts ports.ListOptions
		want int
	}{
		{"unset limit", ports.ListOptions{}, ports.DefaultListLimit},
		{"negative limit", ports.ListOptions{Limit: -1}, ports.DefaultListLimit},
		{"explicit limit above default", ports.ListOptions{Limit: total}, total},
		{"offset with unset limit", ports.ListOptions{Offset: 100}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defs, err := store.ListPipelines(ctx, tt.opts)
			if err != nil {
				t.Fatalf("ListPipelines() error = %v", err)
			}
			if len(defs) != tt.want {
				t.Errorf("ListPipelines() count = %d, want %d", len(defs), tt.want)
			}
		})
	}
}

func TestMemoryStore_DeleteBatch(t *testing.T) {
	store := New()
	ctx := context.Background()

	var ids []string
	for i := range 3 {
		def := newDefinition("p", "user-1", int64(i+1))
		if err := store.SavePipeline(ctx, def); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, def.ID)
	}

	if err := store.DeleteBatch(ctx, []string{ids[0], ids[2], "unknown"}); err != nil {
		t.Fatalf("DeleteBatch() error = %v", err)
	}

	all, _ := store.ListAll(ctx)
	if len(all) != 1 || all[0].ID != ids[1] {
		t.Errorf("ListAll() = %v", all)
	}

	if err := store.DeletePipeline(ctx, ids[1]); err != nil {
		t.Fatalf("DeletePipeline() error = %v", err)
	}
	if err := store.DeletePipeline(ctx, ids[1]); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("DeletePipeline() twice error = %v", err)
	}
}
