package pipeline

import (
	"time"

	"github.com/mano8/imgtools-m8/errors"
	"github.com/mano8/imgtools-m8/json"
	"github.com/mano8/imgtools-m8/metrics"
)

// SourceResult is the outcome for one source image.
type SourceResult struct {
	Source   string            `json:"source"`
	Outputs  []Output          `json:"outputs,omitempty"`
	Error    *errors.ProcError `json:"error,omitempty"`
	Duration time.Duration     `json:"duration_ns"`
}

// OK reports whether the source was fully processed.
func (r SourceResult) OK() bool {
	return r.Error == nil
}

// Report is the result of a whole batch run. Sources keep the processing
// order, so reports are stable across runs regardless of worker count.
type Report struct {
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Sources    []SourceResult    `json:"sources"`
	Counters   []metrics.Counter `json:"counters,omitempty"`
}

// Failed returns the results of sources that errored.
func (r *Report) Failed() []SourceResult {
	var out []SourceResult
	for _, s := range r.Sources {
		if !s.OK() {
			out = append(out, s)
		}
	}
	return out
}

// Summary rebuilds the per-file error summary from the results.
func (r *Report) Summary() *errors.Summary {
	summary := errors.NewSummary()
	for _, s := range r.Sources {
		if s.Error != nil {
			summary.Add(s.Source, s.Error)
		}
	}
	return summary
}

// WriteJSON writes the report as indented JSON, overwriting path.
func (r *Report) WriteJSON(path string) error {
	return json.WriteFile(path, r)
}
