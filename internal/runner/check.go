package runner

import (
	"context"
	"errors"

	"github.com/nholik/bq-sentinel/internal/connection"
	"github.com/nholik/bq-sentinel/internal/state"
	"github.com/nholik/bq-sentinel/internal/testconn"
	"github.com/nholik/bq-sentinel/internal/transition"
)

// Check performs one resolve, open, probe and report pass. The report is
// returned whenever the probes ran, even when a later stage failed.
func (r *Runner) Check(ctx context.Context) (testconn.Report, error) {
	if r.loadConnection == nil {
		return testconn.Report{}, wrapRuntime(OpLoadConnection, errors.New("connection loader is not configured"))
	}
	file, err := r.loadConnection()
	if err != nil {
		return testconn.Report{}, wrapRuntime(OpLoadConnection, err)
	}
	conn := file.Connection

	target := r.resolver.Resolve(conn)
	r.logger.Debug().
		Str("target", target.String()).
		Str("default_project", target.DefaultProject).
		Str("fingerprint", file.Fingerprint).
		Msg("resolved connection target")

	session, err := r.opener(ctx, target, conn)
	if err != nil {
		r.metrics.IncConnectionErrors()
		return testconn.Report{}, wrapRuntime(OpOpenConnection, err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			r.logger.Warn().Err(closeErr).Msg("failed to close connection")
		}
	}()

	steps := testconn.BigQuerySteps(session.Conn, session.Catalog, conn, r.clock)

	runnerOpts := []testconn.Option{testconn.WithClock(r.clock)}
	if r.metrics != nil {
		runnerOpts = append(runnerOpts, testconn.WithObserver(r.metrics))
	}
	report, sinkErr := testconn.NewRunner(r.logger, runnerOpts...).Run(ctx, steps, r.sink, conn.Type, r.workflowRef)

	duration := report.FinishedAt.Sub(report.StartedAt)
	r.metrics.ObserveRunDuration(duration)
	r.tracker.RecordRun(duration, report)
	if !report.Failed() {
		r.metrics.SetLastSuccessfulRunTimestamp(report.FinishedAt)
	}

	if sinkErr != nil {
		r.metrics.IncReportErrors()
		return report, wrapRuntime(OpReport, sinkErr)
	}

	if err := r.persistAndNotify(ctx, report, file.Fingerprint, target); err != nil {
		return report, err
	}

	return report, nil
}

func (r *Runner) persistAndNotify(ctx context.Context, report testconn.Report, fingerprint string, target connection.Target) error {
	if r.stateStore == nil {
		return nil
	}

	key := r.stateKey(report.ServiceType)
	var previous *state.Snapshot
	err := r.withStateLock(func() error {
		loaded, err := r.stateStore.Load(ctx)
		if err != nil {
			return err
		}
		if existing, ok := loaded.Services[key]; ok {
			copySnapshot := existing
			previous = &copySnapshot
		}

		if loaded.Services == nil {
			loaded.Services = map[string]state.Snapshot{}
		}
		loaded.Services[key] = state.NewSnapshot(report, fingerprint, target.String())

		return r.stateStore.Save(ctx, loaded)
	})
	if err != nil {
		return wrapRuntime(OpPersistState, err)
	}

	if previous != nil && previous.ConfigFingerprint != fingerprint {
		r.logger.Info().
			Str("previous_fingerprint", previous.ConfigFingerprint).
			Str("fingerprint", fingerprint).
			Msg("connection config changed")
	}

	transitions := transition.DetectStepTransitions(previous, report)
	for _, change := range transitions {
		event := r.logger.Info()
		switch change.CurrentStatus {
		case testconn.StatusFailed:
			event = r.logger.Error()
		case testconn.StatusSkipped:
			event = r.logger.Warn()
		}
		event.
			Str("state_key", key).
			Str("step", change.Name).
			Str("previous_status", string(change.PreviousStatus)).
			Str("current_status", string(change.CurrentStatus)).
			Str("reason", change.Reason).
			Msg("step transition detected")
	}

	if len(transitions) == 0 || r.notifier == nil {
		return nil
	}
	if err := r.notifier.Report(ctx, report); err != nil {
		r.metrics.IncReportErrors()
		return wrapRuntime(OpNotify, err)
	}
	return nil
}

func (r *Runner) stateKey(serviceType string) string {
	if r.name != "" {
		return r.name
	}
	if serviceType != "" {
		return serviceType
	}
	return connection.DefaultServiceType
}
