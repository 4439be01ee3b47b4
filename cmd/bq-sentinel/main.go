package main

import (
	"errors"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nholik/bq-sentinel/internal/config"
	"github.com/nholik/bq-sentinel/internal/logging"
	"github.com/nholik/bq-sentinel/internal/report"
)

// Version is set at build time via ldflags
var Version = "dev"

// ErrCheckFailed is returned when at least one test connection step failed.
var ErrCheckFailed = errors.New("test connection failed")

const envConnectionFile = "BQS_CONNECTION_FILE"

var connectionFile string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "bq-sentinel",
	Short:        "BigQuery connection resolver and test connection runner",
	Long:         "bq-sentinel resolves BigQuery connection targets and runs the test connection steps against them, once or on an interval.",
	Version:      Version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&connectionFile, "connection-file", "c", "", "connection file (overrides "+envConnectionFile+")")
}

// loadConfig reads the environment, letting --connection-file win over it.
// Logs go to logOut.
func loadConfig(logOut io.Writer) (config.Config, zerolog.Logger, error) {
	if connectionFile != "" {
		if err := os.Setenv(envConnectionFile, connectionFile); err != nil {
			return config.Config{}, zerolog.Nop(), err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	return cfg, logging.NewWithWriter(logOut, cfg.LogLevel), nil
}

// buildNotifier assembles the configured outbound sinks. It returns nil when
// none is configured.
func buildNotifier(logger zerolog.Logger, cfg config.Config) (report.Sink, error) {
	var sinks []report.Sink
	if cfg.SlackWebhookURL != "" {
		sinks = append(sinks, report.NewSlack(logger, cfg.SlackWebhookURL))
	}
	webhook, err := report.NewWebhook(logger, cfg.WebhookURL, cfg.WebhookTemplate)
	if err != nil {
		return nil, err
	}
	if webhook != nil {
		sinks = append(sinks, webhook)
	}
	if len(sinks) == 0 {
		return nil, nil
	}

	multi := report.NewMulti(sinks...)
	if cfg.DryRun {
		return report.NewDryRun(logger, multi), nil
	}
	return multi, nil
}

func consoleFor(out io.Writer) *report.Console {
	if out == os.Stdout {
		return report.NewConsole()
	}
	return report.NewConsoleWriter(out)
}
