package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nholik/bq-sentinel/internal/testconn"
	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

// Slack posts reports to an incoming webhook as Block Kit messages.
type Slack struct {
	logger zerolog.Logger
	timing timingConfig
	poster *httpPoster
}

// SlackOption customizes Slack behavior.
type SlackOption func(*Slack)

// WithSlackTiming overrides timing parameters (primarily for testing).
func WithSlackTiming(timeout, rateInterval time.Duration, rateBurst int) SlackOption {
	return func(s *Slack) {
		s.timing.timeout = timeout
		s.timing.rateInterval = rateInterval
		s.timing.rateBurst = rateBurst
	}
}

// NewSlack creates a Slack sink or a noop sink when the webhook is empty.
func NewSlack(logger zerolog.Logger, webhookURL string, opts ...SlackOption) Sink {
	if webhookURL == "" {
		return NewNoop(logger, "slack webhook not configured; slack reports disabled")
	}

	s := &Slack{
		logger: logger,
		timing: defaultTiming,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.poster = newHTTPPoster(logger, "slack", webhookURL, "application/json", s.timing)

	return s
}

// Report implements Sink.
func (s *Slack) Report(ctx context.Context, report testconn.Report) error {
	service := serviceLabel(report)
	if err := s.poster.waitForRateLimit(ctx, service); err != nil {
		return err
	}

	payload, err := json.Marshal(buildSlackMessage(report))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}
	if err := s.poster.post(ctx, payload); err != nil {
		return err
	}

	s.logger.Debug().
		Str("service_type", service).
		Int("steps", len(report.Steps)).
		Msg("slack report sent")

	return nil
}

func buildSlackMessage(report testconn.Report) slack.WebhookMessage {
	passed, failed, skipped := summary(report)
	verdict := "passed"
	if report.Failed() {
		verdict = "failed"
	}
	text := fmt.Sprintf("%s test connection %s: %d passed, %d failed, %d skipped",
		serviceLabel(report), verdict, passed, failed, skipped)

	header := slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", text, false, false))
	contextElements := []slack.MixedElement{
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("Service: *%s*", serviceLabel(report)), false, false),
	}
	if workflow := report.Workflow(); workflow != "" {
		contextElements = append(contextElements, slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("Workflow: `%s`", workflow), false, false))
	}

	blocks := []slack.Block{header, slack.NewContextBlock("", contextElements...)}
	for _, step := range report.Steps {
		blocks = append(blocks, buildStepBlock(step))
	}

	blockSet := slack.Blocks{BlockSet: blocks}
	return slack.WebhookMessage{
		Text:   text,
		Blocks: &blockSet,
	}
}

func buildStepBlock(step testconn.StepResult) slack.Block {
	title := fmt.Sprintf("%s *%s*: `%s`", statusEmoji(step.Status), step.Name, step.Status)
	text := slack.NewTextBlockObject("mrkdwn", title, false, false)

	var fields []*slack.TextBlockObject
	if step.Reason != "" {
		fields = append(fields, slack.NewTextBlockObject("mrkdwn", "*Reason:*\n"+step.Reason, false, false))
	}
	return slack.NewSectionBlock(text, fields, nil)
}

func statusEmoji(status testconn.Status) string {
	switch status {
	case testconn.StatusPassed:
		return ":white_check_mark:"
	case testconn.StatusFailed:
		return ":x:"
	case testconn.StatusSkipped:
		return ":fast_forward:"
	default:
		return ":grey_question:"
	}
}
