package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	envConnectionFile  = "BQS_CONNECTION_FILE"
	envLogLevel        = "BQS_LOG_LEVEL"
	envPollInterval    = "BQS_POLL_INTERVAL"
	envHealthPort      = "BQS_HEALTH_PORT"
	envMetricsPort     = "BQS_METRICS_PORT"
	envStatePath       = "BQS_STATE_PATH"
	envSlackWebhookURL = "BQS_SLACK_WEBHOOK_URL"
	envWebhookURL      = "BQS_WEBHOOK_URL"
	envWebhookTemplate = "BQS_WEBHOOK_TEMPLATE"
	envWorkflowID      = "BQS_WORKFLOW_ID"
	envDryRun          = "BQS_DRY_RUN"
)

const (
	defaultLogLevel     = "info"
	defaultPollInterval = 5 * time.Minute
	defaultStatePath    = "/var/lib/bq-sentinel/state.json"
)

// Config describes runtime configuration loaded from the environment.
type Config struct {
	ConnectionFile  string
	LogLevel        string
	PollInterval    time.Duration
	HealthPort      int
	MetricsPort     int
	StatePath       string
	SlackWebhookURL string
	WebhookURL      string
	WebhookTemplate string
	WorkflowID      string
	DryRun          bool
}

// WorkflowRef returns the workflow identifier, or nil when none is set.
func (c Config) WorkflowRef() *string {
	if c.WorkflowID == "" {
		return nil
	}
	id := c.WorkflowID
	return &id
}

// ConnectionFiles splits ConnectionFile on commas. Each entry is monitored
// by its own runner in serve mode.
func (c Config) ConnectionFiles() []string {
	var files []string
	for _, part := range strings.Split(c.ConnectionFile, ",") {
		if part = strings.TrimSpace(part); part != "" {
			files = append(files, part)
		}
	}
	return files
}

// Load reads configuration from environment variables and a local .env file if present.
// Existing environment variables take precedence over values in .env.
func Load() (Config, error) {
	if err := loadDotEnvIfPresent(".env"); err != nil {
		return Config{}, err
	}

	cfg := Config{
		LogLevel:     defaultLogLevel,
		PollInterval: defaultPollInterval,
		StatePath:    defaultStatePath,
	}

	if value, ok := lookupTrimmed(envConnectionFile); ok {
		cfg.ConnectionFile = value
	}

	if value, ok := lookupTrimmed(envLogLevel); ok && value != "" {
		cfg.LogLevel = value
	}

	if value, ok := lookupTrimmed(envPollInterval); ok {
		interval, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envPollInterval, err)
		}
		if interval <= 0 {
			return Config{}, fmt.Errorf("%s must be greater than zero", envPollInterval)
		}
		cfg.PollInterval = interval
	}

	var err error
	if cfg.HealthPort, err = lookupPort(envHealthPort); err != nil {
		return Config{}, err
	}
	if cfg.MetricsPort, err = lookupPort(envMetricsPort); err != nil {
		return Config{}, err
	}

	if value, ok := lookupTrimmed(envStatePath); ok {
		cfg.StatePath = value
	}

	if value, ok := lookupTrimmed(envSlackWebhookURL); ok {
		cfg.SlackWebhookURL = value
	}

	if value, ok := lookupTrimmed(envWebhookURL); ok {
		cfg.WebhookURL = value
	}

	if value, ok := os.LookupEnv(envWebhookTemplate); ok {
		cfg.WebhookTemplate = value
	}

	if value, ok := lookupTrimmed(envWorkflowID); ok {
		cfg.WorkflowID = value
	}

	if value, ok := lookupTrimmed(envDryRun); ok && value != "" {
		dryRun, err := strconv.ParseBool(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envDryRun, err)
		}
		cfg.DryRun = dryRun
	}

	if len(cfg.ConnectionFiles()) == 0 {
		return Config{}, errors.New("BQS_CONNECTION_FILE is required")
	}

	if cfg.SlackWebhookURL != "" {
		if err := validateURL(cfg.SlackWebhookURL, envSlackWebhookURL); err != nil {
			return Config{}, err
		}
	}

	if cfg.WebhookURL != "" {
		if err := validateURL(cfg.WebhookURL, envWebhookURL); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

func lookupTrimmed(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func lookupPort(key string) (int, error) {
	value, ok := lookupTrimmed(key)
	if !ok || value == "" {
		return 0, nil
	}
	port, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("%s must be between 0 and 65535", key)
	}
	return port, nil
}

func loadDotEnvIfPresent(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, os.ErrNotExist) {
		return nil
	}

	return err
}

func validateURL(value, name string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid %s: must include scheme and host", name)
	}
	return nil
}
