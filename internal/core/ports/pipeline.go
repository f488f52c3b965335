// Package ports defines the core interfaces for the gateway.
// This file contains the pipeline engine collaborators.
package ports

import (
	"context"

	"github.com/tjfontaine/enrichment-gateway/internal/core/domain"
)

// StepExecutor performs the HTTP call described by one step.
type StepExecutor interface {
	// Execute sends input (or no body when input is nil) to the step's
	// endpoint. index is the step's position in the chain, used to label
	// failures.
	Execute(ctx context.Context, index int, step domain.StepDescriptor, input *string) (domain.StepResult, error)
}

// MarkupConverter is the external markup <-> semantic conversion service.
type MarkupConverter interface {
	// ToSemantic converts markup into an annotatable semantic document and the
	// skeleton needed to rebuild the original layout.
	ToSemantic(ctx context.Context, markup string) (semantic string, skeleton string, err error)

	// FromSemantic merges an enriched semantic document into the skeleton.
	FromSemantic(ctx context.Context, semantic, skeleton string) (markup string, err error)
}

// PipelineRunner executes chains of steps.
type PipelineRunner interface {
	Run(ctx context.Context, steps []domain.StepDescriptor, body string) (*domain.WrappedResult, error)
}
