package healthcheck

import (
	"sync"
	"time"

	"github.com/nholik/bq-sentinel/internal/testconn"
)

// Snapshot describes the latest run timing details.
type Snapshot struct {
	LastRunTime    *time.Time `json:"last_run_time"`
	RunDurationMS  int64      `json:"run_duration_ms"`
	StepsEvaluated int        `json:"steps_evaluated"`
	StepsFailed    int        `json:"steps_failed"`
}

// Tracker records run timing and the latest report for the HTTP endpoints.
type Tracker struct {
	mu             sync.RWMutex
	lastRun        time.Time
	runDuration    time.Duration
	stepsEvaluated int
	stepsFailed    int
	lastReport     *testconn.Report
	ready          bool
}

// NewTracker constructs a new Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// RecordRun updates run timing, the latest report and readiness.
func (t *Tracker) RecordRun(duration time.Duration, report testconn.Report) {
	if t == nil {
		return
	}
	now := time.Now().UTC()
	stored := report
	stored.Steps = append([]testconn.StepResult(nil), report.Steps...)

	t.mu.Lock()
	t.lastRun = now
	t.runDuration = duration
	t.stepsEvaluated = len(report.Steps)
	t.stepsFailed = report.Counts()[testconn.StatusFailed]
	t.lastReport = &stored
	t.ready = true
	t.mu.Unlock()
}

// Snapshot returns the current tracker snapshot.
func (t *Tracker) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	var last *time.Time
	if !t.lastRun.IsZero() {
		value := t.lastRun
		last = &value
	}
	return Snapshot{
		LastRunTime:    last,
		RunDurationMS:  int64(t.runDuration / time.Millisecond),
		StepsEvaluated: t.stepsEvaluated,
		StepsFailed:    t.stepsFailed,
	}
}

// LastReport returns the most recent report, if any.
func (t *Tracker) LastReport() (testconn.Report, bool) {
	if t == nil {
		return testconn.Report{}, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.lastReport == nil {
		return testconn.Report{}, false
	}
	return *t.lastReport, true
}

// Ready reports whether at least one run has completed.
func (t *Tracker) Ready() bool {
	if t == nil {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ready
}

// Healthy reports whether the last run completed within 2x the poll interval.
func (t *Tracker) Healthy(now time.Time, pollInterval time.Duration) bool {
	if t == nil {
		return false
	}
	if pollInterval <= 0 {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.lastRun.IsZero() {
		return false
	}
	return now.Sub(t.lastRun) <= 2*pollInterval
}
