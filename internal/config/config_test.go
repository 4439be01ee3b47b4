package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ValidationAndDefaults(t *testing.T) {
	cases := []struct {
		name    string
		env     map[string]string
		wantErr bool
		want    Config
	}{
		{
			name:    "missing connection file",
			env:     map[string]string{},
			wantErr: true,
		},
		{
			name: "defaults applied",
			env: map[string]string{
				envConnectionFile: "/etc/bq-sentinel/bigquery.yaml",
			},
			want: Config{
				ConnectionFile: "/etc/bq-sentinel/bigquery.yaml",
				LogLevel:       defaultLogLevel,
				PollInterval:   defaultPollInterval,
				StatePath:      defaultStatePath,
			},
		},
		{
			name: "invalid poll interval",
			env: map[string]string{
				envConnectionFile: "conn.yaml",
				envPollInterval:   "nope",
			},
			wantErr: true,
		},
		{
			name: "zero poll interval",
			env: map[string]string{
				envConnectionFile: "conn.yaml",
				envPollInterval:   "0s",
			},
			wantErr: true,
		},
		{
			name: "negative poll interval",
			env: map[string]string{
				envConnectionFile: "conn.yaml",
				envPollInterval:   "-5s",
			},
			wantErr: true,
		},
		{
			name: "invalid health port",
			env: map[string]string{
				envConnectionFile: "conn.yaml",
				envHealthPort:     "http",
			},
			wantErr: true,
		},
		{
			name: "metrics port out of range",
			env: map[string]string{
				envConnectionFile: "conn.yaml",
				envMetricsPort:    "70000",
			},
			wantErr: true,
		},
		{
			name: "invalid slack webhook url",
			env: map[string]string{
				envConnectionFile:  "conn.yaml",
				envSlackWebhookURL: "not-a-url",
			},
			wantErr: true,
		},
		{
			name: "invalid webhook url",
			env: map[string]string{
				envConnectionFile: "conn.yaml",
				envWebhookURL:     "example.com/hook",
			},
			wantErr: true,
		},
		{
			name: "invalid dry run",
			env: map[string]string{
				envConnectionFile: "conn.yaml",
				envDryRun:         "maybe",
			},
			wantErr: true,
		},
		{
			name: "everything set",
			env: map[string]string{
				envConnectionFile:  "conn.yaml",
				envLogLevel:        "debug",
				envPollInterval:    "45s",
				envHealthPort:      "8080",
				envMetricsPort:     "9090",
				envStatePath:       "/tmp/state.json",
				envSlackWebhookURL: "https://hooks.slack.com/services/T00/B00/XXX",
				envWebhookURL:      "https://example.com/hook",
				envWebhookTemplate: `{"service":"{{ .ServiceType }}"}`,
				envWorkflowID:      "wf-1",
				envDryRun:          "true",
			},
			want: Config{
				ConnectionFile:  "conn.yaml",
				LogLevel:        "debug",
				PollInterval:    45 * time.Second,
				HealthPort:      8080,
				MetricsPort:     9090,
				StatePath:       "/tmp/state.json",
				SlackWebhookURL: "https://hooks.slack.com/services/T00/B00/XXX",
				WebhookURL:      "https://example.com/hook",
				WebhookTemplate: `{"service":"{{ .ServiceType }}"}`,
				WorkflowID:      "wf-1",
				DryRun:          true,
			},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			restoreDir := mustChdir(t, tmpDir)
			defer restoreDir()

			for _, key := range allKeys {
				t.Setenv(key, "")
				os.Unsetenv(key)
			}
			for key, value := range tc.env {
				t.Setenv(key, value)
			}

			got, err := Load()
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got != tc.want {
				t.Fatalf("unexpected config: %+v", got)
			}
		})
	}
}

var allKeys = []string{
	envConnectionFile, envLogLevel, envPollInterval, envHealthPort, envMetricsPort, envStatePath,
	envSlackWebhookURL, envWebhookURL, envWebhookTemplate, envWorkflowID, envDryRun,
}

func TestLoad_DotEnvAndEnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	restoreDir := mustChdir(t, tmpDir)
	defer restoreDir()

	for _, key := range allKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	dotenv := []byte(`
# example .env
BQS_CONNECTION_FILE=/from-dotenv.yaml
BQS_WORKFLOW_ID=wf-dotenv
BQS_LOG_LEVEL=warn
`)

	if err := os.WriteFile(filepath.Join(tmpDir, ".env"), dotenv, 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	t.Setenv(envConnectionFile, "/from-env.yaml")

	got, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.ConnectionFile != "/from-env.yaml" {
		t.Fatalf("connection file did not prefer env: %s", got.ConnectionFile)
	}
	if got.WorkflowID != "wf-dotenv" {
		t.Fatalf("workflow id not loaded from .env: %s", got.WorkflowID)
	}
	if got.LogLevel != "warn" {
		t.Fatalf("log level not loaded from .env: %s", got.LogLevel)
	}
	if ref := got.WorkflowRef(); ref == nil || *ref != "wf-dotenv" {
		t.Fatalf("unexpected workflow ref: %v", ref)
	}
}

func TestConfigWorkflowRefUnset(t *testing.T) {
	if ref := (Config{}).WorkflowRef(); ref != nil {
		t.Fatalf("expected nil workflow ref, got %q", *ref)
	}
}

func TestConfigConnectionFiles(t *testing.T) {
	tests := []struct {
		value string
		want  []string
	}{
		{value: "", want: nil},
		{value: "a.yaml", want: []string{"a.yaml"}},
		{value: " a.yaml, ,b.yaml ", want: []string{"a.yaml", "b.yaml"}},
	}
	for _, tt := range tests {
		got := Config{ConnectionFile: tt.value}.ConnectionFiles()
		if len(got) != len(tt.want) {
			t.Fatalf("%q: expected %v, got %v", tt.value, tt.want, got)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("%q: expected %v, got %v", tt.value, tt.want, got)
			}
		}
	}
}

func mustChdir(t *testing.T, dir string) func() {
	t.Helper()
	original, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	return func() {
		if err := os.Chdir(original); err != nil {
			t.Fatalf("restore dir: %v", err)
		}
	}
}
