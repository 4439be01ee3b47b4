package report

import (
	"context"
	"fmt"

	"github.com/nholik/bq-sentinel/internal/testconn"
	"github.com/rs/zerolog"
)

// DryRun logs reports without delivering them.
type DryRun struct {
	logger zerolog.Logger
	inner  Sink
}

// NewDryRun returns a sink that suppresses delivery to inner and logs instead.
func NewDryRun(logger zerolog.Logger, inner Sink) *DryRun {
	return &DryRun{logger: logger, inner: inner}
}

// Report implements Sink.
func (d *DryRun) Report(_ context.Context, report testconn.Report) error {
	passed, failed, skipped := summary(report)
	d.logger.Info().
		Str("service_type", serviceLabel(report)).
		Str("workflow", report.Workflow()).
		Int("passed", passed).
		Int("failed", failed).
		Int("skipped", skipped).
		Str("sink", fmt.Sprintf("%T", d.inner)).
		Msg("[DRY-RUN] Would report")
	return nil
}
