package domain

import (
	"fmt"
	"time"
)

// Visibility controls who may list a stored pipeline.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// DefaultRetention is how long a non-persistent pipeline is kept.
const DefaultRetention = 7 * 24 * time.Hour

// PipelineDefinition is a stored, named chain of steps.
type PipelineDefinition struct {
	ID          string           `json:"id"`
	Label       string           `json:"label"`
	Description string           `json:"description,omitempty"`
	OwnerID     string           `json:"owner_id,omitempty"`
	Visibility  Visibility       `json:"visibility"`
	CreatedAt   int64            `json:"created_at"` // epoch millis
	Persist     bool             `json:"persist"`
	Steps       []SerializedStep `json:"steps"`
}

// Descriptors deserializes the stored steps.
func (p *PipelineDefinition) Descriptors() []StepDescriptor {
	return DecodeSteps(p.Steps)
}

// Expired reports whether the pipeline may be removed by the expiry sweep.
func (p *PipelineDefinition) Expired(now time.Time, retention time.Duration) bool {
	if p.Persist {
		return false
	}
	return now.UnixMilli()-p.CreatedAt > retention.Milliseconds()
}

// Validate checks the definition is storable.
func (p *PipelineDefinition) Validate() error {
	if p.Label == "" {
		return fmt.Errorf("%w: label is required", ErrInvalidPipeline)
	}
	switch p.Visibility {
	case "":
		p.Visibility = VisibilityPrivate
	case VisibilityPublic, VisibilityPrivate:
	default:
		return fmt.Errorf("%w: unknown visibility %q", ErrInvalidPipeline, p.Visibility)
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("%w: at least one step is required", ErrInvalidPipeline)
	}
	for i, s := range p.Descriptors() {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}

// Clone returns a deep copy so callers can hold a definition independently
// of the store.
func (p *PipelineDefinition) Clone() *PipelineDefinition {
	c := *p
	c.Steps = EncodeSteps(p.Descriptors())
	return &c
}
