package models

import "time"

// ExecutionState is the lifecycle state of a tracked execution.
type ExecutionState string

const (
	ExecutionStateQueued    ExecutionState = "queued"
	ExecutionStateRunning   ExecutionState = "running"
	ExecutionStateCompleted ExecutionState = "completed"
	ExecutionStateFailed    ExecutionState = "failed"
	ExecutionStateCancelled ExecutionState = "cancelled"
)

// IsTerminal reports whether the state permits no further transitions.
func (s ExecutionState) IsTerminal() bool {
	return s == ExecutionStateCompleted || s == ExecutionStateFailed || s == ExecutionStateCancelled
}

// ExecutionStatus is the registry entry for an in-flight or finished
// execution. CurrentAgent and CurrentPhase are empty outside RUNNING.
type ExecutionStatus struct {
	ExecutionID  string         `json:"execution_id"`
	State        ExecutionState `json:"state"`
	CurrentAgent string         `json:"current_agent,omitempty"`
	CurrentPhase Phase          `json:"current_phase,omitempty"`
	Percent      int            `json:"percent"`
	Message      string         `json:"message,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
}
