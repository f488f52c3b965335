package ports

import (
	"context"

	"github.com/tjfontaine/enrichment-gateway/internal/core/domain"
)

// PipelineStore defines the interface for pipeline definition storage.
// Implementations serialize the step list on save and deserialize it on
// every read; callers always receive independent copies.
type PipelineStore interface {
	// SavePipeline stores a new definition. An empty ID is replaced by a
	// generated one and a zero CreatedAt by the current time.
	SavePipeline(ctx context.Context, def *domain.PipelineDefinition) error

	// GetPipeline retrieves a definition by ID.
	GetPipeline(ctx context.Context, id string) (*domain.PipelineDefinition, error)

	// UpdatePipeline replaces the mutable fields of an existing definition.
	UpdatePipeline(ctx context.Context, def *domain.PipelineDefinition) error

	// ListPipelines lists definitions matching the options, newest first.
	ListPipelines(ctx context.Context, opts ListOptions) ([]*domain.PipelineDefinition, error)

	// ListAll returns every stored definition.
	ListAll(ctx context.Context) ([]*domain.PipelineDefinition, error)

	// DeletePipeline deletes one definition.
	DeletePipeline(ctx context.Context, id string) error

	// DeleteBatch deletes all the given definitions at once. Unknown IDs are ignored.
	DeleteBatch(ctx context.Context, ids []string) error

	// Close closes the storage connection
	Close() error
}

// DefaultListLimit caps ListPipelines when ListOptions.Limit is not set.
const DefaultListLimit = 100

// ListOptions filters and paginates ListPipelines.
type ListOptions struct {
	OwnerID    string
	Visibility domain.Visibility
	Limit      int
	Offset     int
}

// PageSize returns Limit, or DefaultListLimit when Limit is zero or negative.
func (o ListOptions) PageSize() int {
	if o.Limit <= 0 {
		return DefaultListLimit
	}
	return o.Limit
}
