package report

import (
	"context"

	"github.com/nholik/bq-sentinel/internal/testconn"
)

// Multi fans out reports to multiple sinks.
type Multi struct {
	sinks []Sink
}

// NewMulti creates a sink that dispatches to all provided sinks.
func NewMulti(sinks ...Sink) *Multi {
	filtered := make([]Sink, 0, len(sinks))
	for _, sink := range sinks {
		if sink == nil {
			continue
		}
		filtered = append(filtered, sink)
	}
	return &Multi{sinks: filtered}
}

// Len returns the number of configured sinks.
func (m *Multi) Len() int {
	return len(m.sinks)
}

// Report implements Sink. Every sink is attempted; the first error is returned.
func (m *Multi) Report(ctx context.Context, report testconn.Report) error {
	var firstErr error
	for _, sink := range m.sinks {
		if err := sink.Report(ctx, report); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
