package domain

import (
	"errors"
	"testing"
	"time"
)

func TestPipelineDefinition_Expired(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		age     time.Duration
		persist bool
		want    bool
	}{
		{"fresh", time.Hour, false, false},
		{"exactly retention", DefaultRetention, false, false},
		{"older than retention", DefaultRetention + time.Millisecond, false, true},
		{"old but persistent", 30 * 24 * time.Hour, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &PipelineDefinition{CreatedAt: now.Add(-tt.age).UnixMilli(), Persist: tt.persist}
			if got := p.Expired(now, DefaultRetention); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPipelineDefinition_Validate(t *testing.T) {
	valid := func() *PipelineDefinition {
		return &PipelineDefinition{
			Label: "ner",
			Steps: []SerializedStep{{Method: "POST", Endpoint: "http://nlp.example/ner"}},
		}
	}

	p := valid()
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if p.Visibility != VisibilityPrivate {
		t.Errorf("default visibility = %q, want private", p.Visibility)
	}

	noLabel := valid()
	noLabel.Label = ""
	noSteps := valid()
	noSteps.Steps = nil
	badVis := valid()
	badVis.Visibility = "secret"
	badStep := valid()
	badStep.Steps[0].Endpoint = "not a url"

	for name, p := range map[string]*PipelineDefinition{
		"no label":       noLabel,
		"no steps":       noSteps,
		"bad visibility": badVis,
		"bad step":       badStep,
	} {
		t.Run(name, func(t *testing.T) {
			if err := p.Validate(); !errors.Is(err, ErrInvalidPipeline) {
				t.Errorf("Validate() error = %v, want ErrInvalidPipeline", err)
			}
		})
	}
}

func TestPipelineDefinition_CloneIsIndependent(t *testing.T) {
	p := &PipelineDefinition{
		Label: "x",
		Steps: []SerializedStep{{Method: "POST", Endpoint: "http://a.example", Parameters: map[string]string{"k": "v"}}},
	}

	c := p.Clone()
	c.Steps[0].Parameters["k"] = "changed"

	if p.Steps[0].Parameters["k"] != "v" {
		t.Error("clone shares step parameters with original")
	}
}
