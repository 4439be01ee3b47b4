package testconn

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Observer is notified of every step outcome, e.g. to export metrics.
type Observer interface {
	ObserveStep(serviceType string, result StepResult)
}

// Runner executes step tables.
type Runner struct {
	logger   zerolog.Logger
	observer Observer
	now      func() time.Time
}

// Option customizes runner behavior.
type Option func(*Runner)

// WithObserver registers an observer for step outcomes.
func WithObserver(observer Observer) Option {
	return func(r *Runner) {
		r.observer = observer
	}
}

// WithClock overrides the clock used for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// NewRunner constructs a Runner.
func NewRunner(logger zerolog.Logger, opts ...Option) *Runner {
	r := &Runner{
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes every step in order and hands the resulting report to sink.
// Probe errors and panics become failed outcomes and never abort the run;
// the returned error is only ever the sink's.
func (r *Runner) Run(ctx context.Context, steps []Step, sink Sink, serviceType string, workflowRef *string) (Report, error) {
	report := Report{
		ServiceType: serviceType,
		WorkflowRef: workflowRef,
		Steps:       make([]StepResult, 0, len(steps)),
		StartedAt:   r.now().UTC(),
	}

	for _, step := range steps {
		result := r.runStep(ctx, step)
		report.Steps = append(report.Steps, result)

		event := r.logger.Info()
		switch result.Status {
		case StatusFailed:
			event = r.logger.Warn().Str("reason", result.Reason)
		case StatusSkipped:
			event = event.Str("reason", result.Reason)
		}
		event.Str("service_type", serviceType).
			Str("step", result.Name).
			Str("status", string(result.Status)).
			Dur("duration", result.Duration).
			Msg("test connection step finished")

		if r.observer != nil {
			r.observer.ObserveStep(serviceType, result)
		}
	}
	report.FinishedAt = r.now().UTC()

	if sink == nil {
		return report, nil
	}
	if err := sink.Report(ctx, report); err != nil {
		return report, fmt.Errorf("report test connection: %w", err)
	}
	return report, nil
}

func (r *Runner) runStep(ctx context.Context, step Step) StepResult {
	start := r.now()
	err := safeProbe(ctx, step.Probe)
	status, reason := classify(err)
	return StepResult{
		Name:     step.Name,
		Status:   status,
		Reason:   reason,
		Duration: r.now().Sub(start),
	}
}

func safeProbe(ctx context.Context, probe Probe) (err error) {
	if probe == nil {
		return fmt.Errorf("probe is not defined")
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("probe panicked: %v", recovered)
		}
	}()
	return probe(ctx)
}
