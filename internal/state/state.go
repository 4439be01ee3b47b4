package state

import (
	"context"
	"time"

	"github.com/nholik/bq-sentinel/internal/testconn"
)

// Snapshot captures the persisted outcome of the last run for a service.
type Snapshot struct {
	ConfigFingerprint string                `json:"config_fingerprint"`
	Target            string                `json:"target"`
	WorkflowRef       string                `json:"workflow_ref,omitempty"`
	Steps             []testconn.StepResult `json:"steps"`
	EvaluatedAt       time.Time             `json:"evaluated_at"`
}

// NewSnapshot builds a snapshot from a finished report.
func NewSnapshot(report testconn.Report, fingerprint, target string) Snapshot {
	return Snapshot{
		ConfigFingerprint: fingerprint,
		Target:            target,
		WorkflowRef:       report.Workflow(),
		Steps:             append([]testconn.StepResult(nil), report.Steps...),
		EvaluatedAt:       report.FinishedAt,
	}
}

// StepStatus returns the stored status of the named step.
func (s Snapshot) StepStatus(name string) (testconn.Status, bool) {
	for _, step := range s.Steps {
		if step.Name == name {
			return step.Status, true
		}
	}
	return "", false
}

// SchemaVersion is the current on-disk state layout.
const SchemaVersion = 1

// State stores snapshots keyed by connection name or service type.
type State struct {
	Version  int                 `json:"version"`
	Services map[string]Snapshot `json:"services"`
}

// Empty returns a state with no snapshots at the current schema version.
func Empty() State {
	return State{Version: SchemaVersion, Services: map[string]Snapshot{}}
}

// Store defines the interface for persisting state.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
}
