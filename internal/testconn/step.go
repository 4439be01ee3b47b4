// Package testconn runs the test-connection protocol: a fixed, ordered table
// of independent probes whose outcomes are classified as passed, failed or
// skipped and handed to a reporting sink as one report.
package testconn

import (
	"context"
	"errors"
	"time"
)

// Probe performs one diagnostic check.
type Probe func(ctx context.Context) error

// Step is a named probe. Steps run in table order but never depend on each other.
type Step struct {
	Name  string
	Probe Probe
}

// Status classifies the outcome of a step.
type Status string

const (
	StatusPassed  Status = "PASSED"
	StatusFailed  Status = "FAILED"
	StatusSkipped Status = "SKIPPED"
)

// StepResult is the outcome of a single step.
type StepResult struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Reason   string        `json:"reason,omitempty"`
	Duration time.Duration `json:"duration"`
}

// SkipError marks a probe as not applicable to the current configuration.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return "skipped: " + e.Reason
}

// Skip returns an error that classifies the step as skipped.
func Skip(reason string) error {
	return &SkipError{Reason: reason}
}

// classify converts a probe error into a step status and reason.
func classify(err error) (Status, string) {
	if err == nil {
		return StatusPassed, ""
	}
	var skip *SkipError
	if errors.As(err, &skip) {
		return StatusSkipped, skip.Reason
	}
	return StatusFailed, err.Error()
}
