package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"github.com/nholik/bq-sentinel/internal/testconn"
	"github.com/rs/zerolog"
)

const defaultWebhookTemplate = `{"service_type":{{ toJson .ServiceType }},"workflow":{{ toJson .Workflow }},"failed":{{ .Failed }},"steps":{{ toJson .Steps }}}`

// WebhookPayload is the template context for webhook reports.
type WebhookPayload struct {
	ServiceType string
	Workflow    string
	Failed      bool
	Steps       []testconn.StepResult
	StartedAt   time.Time
	FinishedAt  time.Time
	GeneratedAt time.Time
}

// Webhook posts reports to a generic webhook.
type Webhook struct {
	logger   zerolog.Logger
	template *template.Template
	poster   *httpPoster
}

// NewWebhook creates a webhook sink with the provided template. It returns
// nil when no URL is configured.
func NewWebhook(logger zerolog.Logger, webhookURL string, tmpl string) (*Webhook, error) {
	if webhookURL == "" {
		return nil, nil
	}
	if tmpl == "" {
		tmpl = defaultWebhookTemplate
	}

	parsed, err := template.New("webhook").Funcs(template.FuncMap{
		"toJson": func(v any) (string, error) {
			encoded, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			return string(encoded), nil
		},
	}).Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("parse webhook template: %w", err)
	}

	return &Webhook{
		logger:   logger,
		template: parsed,
		poster:   newHTTPPoster(logger, "webhook", webhookURL, "application/json", defaultTiming),
	}, nil
}

// Report implements Sink.
func (w *Webhook) Report(ctx context.Context, report testconn.Report) error {
	if w == nil {
		return nil
	}

	service := serviceLabel(report)
	if err := w.poster.waitForRateLimit(ctx, service); err != nil {
		return err
	}

	payload := WebhookPayload{
		ServiceType: service,
		Workflow:    report.Workflow(),
		Failed:      report.Failed(),
		Steps:       report.Steps,
		StartedAt:   report.StartedAt,
		FinishedAt:  report.FinishedAt,
		GeneratedAt: time.Now().UTC(),
	}

	var buf bytes.Buffer
	if err := w.template.Execute(&buf, payload); err != nil {
		return fmt.Errorf("render webhook template: %w", err)
	}

	if err := w.poster.post(ctx, buf.Bytes()); err != nil {
		return err
	}

	w.logger.Debug().
		Str("service_type", service).
		Int("steps", len(report.Steps)).
		Msg("webhook report sent")

	return nil
}
