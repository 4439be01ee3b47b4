package main

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nholik/bq-sentinel/internal/coordinator"
	"github.com/nholik/bq-sentinel/internal/healthcheck"
	"github.com/nholik/bq-sentinel/internal/metrics"
	"github.com/nholik/bq-sentinel/internal/runner"
	"github.com/nholik/bq-sentinel/internal/server"
	"github.com/nholik/bq-sentinel/internal/state"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the test connection on an interval and serve health and metrics",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd.OutOrStdout())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("version", Version).
		Str("connection_file", cfg.ConnectionFile).
		Dur("poll_interval", cfg.PollInterval).
		Bool("dry_run", cfg.DryRun).
		Msg("bq-sentinel starting")

	notifier, err := buildNotifier(logger, cfg)
	if err != nil {
		return err
	}

	metricsCollector := metrics.New()
	tracker := healthcheck.NewTracker()
	server.Start(ctx, logger, server.Config{
		HealthPort:   cfg.HealthPort,
		MetricsPort:  cfg.MetricsPort,
		PollInterval: cfg.PollInterval,
	}, tracker, metricsCollector)

	opts := []runner.Option{
		runner.WithWorkflowRef(cfg.WorkflowRef()),
		runner.WithMetrics(metricsCollector),
		runner.WithTracker(tracker),
		runner.WithStateStore(state.NewFileStore(cfg.StatePath, logger), &sync.Mutex{}),
	}
	if notifier != nil {
		opts = append(opts, runner.WithNotifier(notifier))
	}

	return coordinator.New(logger, cfg, coordinator.SourcesFromConfig(cfg), opts...).Run(ctx)
}

