package pipeline

import (
	"context"
	"errors"

	"github.com/tjfontaine/enrichment-gateway/internal/core/domain"
	"github.com/tjfontaine/enrichment-gateway/internal/core/ports"
)

var errNoSkeleton = errors.New("no skeleton retained from forward conversion")

// RoundTrip converts markup to the semantic form before a chain and back
// afterwards. It keeps the skeleton of one run and must not be shared.
type RoundTrip struct {
	converter ports.MarkupConverter
	skeleton  string
	held      bool
}

func newRoundTrip(converter ports.MarkupConverter) *RoundTrip {
	return &RoundTrip{converter: converter}
}

// Forward returns the semantic form of markup and retains its skeleton.
func (rt *RoundTrip) Forward(ctx context.Context, markup string) (string, error) {
	semantic, skeleton, err := rt.converter.ToSemantic(ctx, markup)
	if err != nil {
		return "", &domain.ConversionError{Err: err}
	}
	rt.skeleton = skeleton
	rt.held = true
	return semantic, nil
}

// Backward merges semantic into the retained skeleton. The skeleton is
// released once the merge succeeds.
func (rt *RoundTrip) Backward(ctx context.Context, semantic string) (string, error) {
	if !rt.held {
		return "", &domain.BackwardConversionError{Err: errNoSkeleton}
	}
	markup, err := rt.converter.FromSemantic(ctx, semantic, rt.skeleton)
	if err != nil {
		return "", &domain.BackwardConversionError{Err: err}
	}
	rt.skeleton = ""
	rt.held = false
	return markup, nil
}
