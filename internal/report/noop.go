package report

import (
	"context"

	"github.com/nholik/bq-sentinel/internal/testconn"
	"github.com/rs/zerolog"
)

// Noop drops reports.
type Noop struct {
	logger zerolog.Logger
	reason string
}

// NewNoop returns a sink that logs once and does nothing thereafter.
func NewNoop(logger zerolog.Logger, reason string) *Noop {
	if reason != "" {
		logger.Info().Msg(reason)
	}
	return &Noop{logger: logger, reason: reason}
}

// Report implements Sink.
func (n *Noop) Report(context.Context, testconn.Report) error {
	return nil
}
