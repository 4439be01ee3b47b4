package report

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jwalton/go-supportscolor"

	"github.com/nholik/bq-sentinel/internal/testconn"
)

const (
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorReset  = "\033[0m"
)

// Console prints reports as one line per step.
type Console struct {
	out   io.Writer
	color bool
}

// NewConsole writes to stdout, with color when the terminal supports it.
func NewConsole() *Console {
	return &Console{
		out:   os.Stdout,
		color: supportscolor.Stdout().SupportsColor,
	}
}

// NewConsoleWriter writes to out without color.
func NewConsoleWriter(out io.Writer) *Console {
	return &Console{out: out}
}

// Report implements Sink.
func (c *Console) Report(_ context.Context, report testconn.Report) error {
	for _, step := range report.Steps {
		if _, err := fmt.Fprintf(c.out, "%s %s\n", c.label(step.Status), step.Name); err != nil {
			return err
		}
		if step.Reason != "" {
			if _, err := fmt.Fprintf(c.out, "      %s\n", step.Reason); err != nil {
				return err
			}
		}
	}

	passed, failed, skipped := summary(report)
	line := fmt.Sprintf("%s: %d passed, %d failed, %d skipped", serviceLabel(report), passed, failed, skipped)
	if workflow := report.Workflow(); workflow != "" {
		line += fmt.Sprintf(" (workflow %s)", workflow)
	}
	_, err := fmt.Fprintln(c.out, line)
	return err
}

func (c *Console) label(status testconn.Status) string {
	var text, color string
	switch status {
	case testconn.StatusPassed:
		text, color = "[PASS]", colorGreen
	case testconn.StatusFailed:
		text, color = "[FAIL]", colorRed
	case testconn.StatusSkipped:
		text, color = "[SKIP]", colorYellow
	default:
		text = "[" + string(status) + "]"
	}
	if !c.color || color == "" {
		return text
	}
	return color + text + colorReset
}
