package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nholik/bq-sentinel/internal/report"
	"github.com/nholik/bq-sentinel/internal/runner"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the test connection steps once",
	Long:  "Runs every test connection step against the configured BigQuery connection and prints the report. Exits non-zero when a step failed.",
	Args:  cobra.NoArgs,
	RunE:  runCheckCommand,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheckCommand(cmd *cobra.Command, _ []string) error {
	// stdout carries the console report
	cfg, logger, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	sinks := []report.Sink{consoleFor(cmd.OutOrStdout())}
	notifier, err := buildNotifier(logger, cfg)
	if err != nil {
		return err
	}
	if notifier != nil {
		sinks = append(sinks, notifier)
	}

	sink := report.NewMulti(sinks...)

	failed := false
	var errs []error
	for _, path := range cfg.ConnectionFiles() {
		r := runner.New(logger.With().Str("connection_file", path).Logger(), cfg.PollInterval,
			runner.WithConnectionLoader(runner.FileLoader(path)),
			runner.WithSink(sink),
			runner.WithWorkflowRef(cfg.WorkflowRef()),
		)

		result, err := r.Check(cmd.Context())
		if err != nil {
			logger.Error().Err(err).Str("connection_file", path).Msg("check failed")
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		failed = failed || result.Failed()
	}
	if failed {
		errs = append(errs, ErrCheckFailed)
	}
	return errors.Join(errs...)
}
