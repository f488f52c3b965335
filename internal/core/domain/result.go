package domain

import (
	"encoding/json"
	"time"
)

// Fixed timing labels for the two conversion phases of a round-trip chain.
const (
	LabelToSemantic   = "html2nif"
	LabelFromSemantic = "nif2html"
)

// StepResult is the body produced by a step or by the markup converter.
type StepResult struct {
	Body        string `json:"body"`
	ContentType string `json:"content_type,omitempty"`
}

// TimingEntry is one labelled duration of an ExecutionReport.
type TimingEntry struct {
	Label  string `json:"label"`
	Millis int64  `json:"ms"`
}

// ExecutionReport collects per-step timings in execution order.
// Recording a label twice overwrites the earlier value in place.
type ExecutionReport struct {
	entries     []TimingEntry
	index       map[string]int
	TotalMillis int64
}

// NewExecutionReport returns an empty report.
func NewExecutionReport() *ExecutionReport {
	return &ExecutionReport{index: make(map[string]int)}
}

// Record stores the elapsed time for label.
func (r *ExecutionReport) Record(label string, d time.Duration) {
	ms := d.Milliseconds()
	if i, ok := r.index[label]; ok {
		r.entries[i].Millis = ms
		return
	}
	r.index[label] = len(r.entries)
	r.entries = append(r.entries, TimingEntry{Label: label, Millis: ms})
}

// Entries returns a copy of the recorded timings in order.
func (r *ExecutionReport) Entries() []TimingEntry {
	out := make([]TimingEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Lookup returns the timing recorded for label.
func (r *ExecutionReport) Lookup(label string) (int64, bool) {
	i, ok := r.index[label]
	if !ok {
		return 0, false
	}
	return r.entries[i].Millis, true
}

// Len returns the number of distinct labels recorded.
func (r *ExecutionReport) Len() int {
	return len(r.entries)
}

type reportJSON struct {
	Steps       []TimingEntry `json:"steps"`
	TotalMillis int64         `json:"total_ms"`
}

func (r *ExecutionReport) MarshalJSON() ([]byte, error) {
	steps := r.entries
	if steps == nil {
		steps = []TimingEntry{}
	}
	return json.Marshal(reportJSON{Steps: steps, TotalMillis: r.TotalMillis})
}

func (r *ExecutionReport) UnmarshalJSON(data []byte) error {
	var raw reportJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.entries = nil
	r.index = make(map[string]int, len(raw.Steps))
	for _, e := range raw.Steps {
		r.Record(e.Label, time.Duration(e.Millis)*time.Millisecond)
	}
	r.TotalMillis = raw.TotalMillis
	return nil
}

// WrappedResult pairs the final body of a chain with its timing report.
type WrappedResult struct {
	Result StepResult       `json:"result"`
	Report *ExecutionReport `json:"report"`
}
