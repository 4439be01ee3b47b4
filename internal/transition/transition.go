package transition

import (
	"github.com/nholik/bq-sentinel/internal/state"
	"github.com/nholik/bq-sentinel/internal/testconn"
)

// StepTransition captures a step status change between two runs.
type StepTransition struct {
	Name           string          `json:"name"`
	PreviousStatus testconn.Status `json:"previous_status,omitempty"`
	CurrentStatus  testconn.Status `json:"current_status"`
	Reason         string          `json:"reason,omitempty"`
}

// DetectStepTransitions compares the previous snapshot with the current report.
// On the first run only non-passing steps are reported. Results follow the
// step order of the current report.
func DetectStepTransitions(prev *state.Snapshot, current testconn.Report) []StepTransition {
	firstRun := prev == nil || len(prev.Steps) == 0

	transitions := make([]StepTransition, 0)
	for _, step := range current.Steps {
		var prevStatus testconn.Status
		hadPrev := false
		if !firstRun {
			prevStatus, hadPrev = prev.StepStatus(step.Name)
		}

		switch {
		case firstRun || !hadPrev:
			if step.Status == testconn.StatusPassed {
				continue
			}
		case prevStatus == step.Status:
			continue
		}

		transitions = append(transitions, StepTransition{
			Name:           step.Name,
			PreviousStatus: prevStatus,
			CurrentStatus:  step.Status,
			Reason:         step.Reason,
		})
	}

	return transitions
}
