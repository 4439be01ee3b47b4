// Package report delivers test connection reports: to the console, to
// webhooks and Slack, or to several of them at once.
package report

import (
	"github.com/nholik/bq-sentinel/internal/testconn"
)

// Sink is the reporting contract shared with the runner.
type Sink = testconn.Sink

var (
	_ Sink = (*Console)(nil)
	_ Sink = (*Multi)(nil)
	_ Sink = (*Noop)(nil)
	_ Sink = (*DryRun)(nil)
	_ Sink = (*Webhook)(nil)
	_ Sink = (*Slack)(nil)
)

func serviceLabel(report testconn.Report) string {
	if report.ServiceType == "" {
		return "default"
	}
	return report.ServiceType
}

func summary(report testconn.Report) (passed, failed, skipped int) {
	counts := report.Counts()
	return counts[testconn.StatusPassed], counts[testconn.StatusFailed], counts[testconn.StatusSkipped]
}
