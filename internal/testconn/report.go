package testconn

import (
	"context"
	"time"
)

// Report is the ordered collection of step outcomes from one run.
type Report struct {
	ServiceType string       `json:"service_type"`
	WorkflowRef *string      `json:"workflow_ref,omitempty"`
	Steps       []StepResult `json:"steps"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  time.Time    `json:"finished_at"`
}

// Sink receives the report at the end of a run.
type Sink interface {
	Report(ctx context.Context, report Report) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, report Report) error

// Report implements Sink.
func (f SinkFunc) Report(ctx context.Context, report Report) error {
	return f(ctx, report)
}

// Failed reports whether any step failed. Skipped steps do not count.
func (r Report) Failed() bool {
	for _, step := range r.Steps {
		if step.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Result returns the outcome recorded for the named step.
func (r Report) Result(name string) (StepResult, bool) {
	for _, step := range r.Steps {
		if step.Name == name {
			return step, true
		}
	}
	return StepResult{}, false
}

// Counts returns the number of steps per status.
func (r Report) Counts() map[Status]int {
	counts := map[Status]int{
		StatusPassed:  0,
		StatusFailed:  0,
		StatusSkipped: 0,
	}
	for _, step := range r.Steps {
		counts[step.Status]++
	}
	return counts
}

// Workflow returns the workflow reference or the empty string.
func (r Report) Workflow() string {
	if r.WorkflowRef == nil {
		return ""
	}
	return *r.WorkflowRef
}
