package runner

import (
	"sync"
	"time"

	"github.com/quartetdev/quartet/pkg/models"
)

// StatusRegistry tracks in-flight and completed executions by identifier.
// Entries in a terminal state are frozen; transitions against them are
// silently dropped.
type StatusRegistry struct {
	mu       sync.RWMutex
	statuses map[string]*models.ExecutionStatus
}

func NewStatusRegistry() *StatusRegistry {
	return &StatusRegistry{
		statuses: make(map[string]*models.ExecutionStatus),
	}
}

// Track registers a new QUEUED entry for the execution.
func (sr *StatusRegistry) Track(executionID string) {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	sr.statuses[executionID] = &models.ExecutionStatus{
		ExecutionID: executionID,
		State:       models.ExecutionStateQueued,
		Message:     "queued",
		StartedAt:   time.Now(),
	}
}

// Get returns a copy of the tracked status, or false for unknown IDs.
func (sr *StatusRegistry) Get(executionID string) (models.ExecutionStatus, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	status, ok := sr.statuses[executionID]
	if !ok {
		return models.ExecutionStatus{}, false
	}

	return *status, true
}

// MarkRunning transitions a queued entry to RUNNING.
func (sr *StatusRegistry) MarkRunning(executionID string) {
	sr.update(executionID, func(status *models.ExecutionStatus) {
		status.State = models.ExecutionStateRunning
		status.Message = "running"
	})
}

// SetProgress records the currently active agent, phase and percent. Empty
// strings and negative percent leave the corresponding field unchanged.
func (sr *StatusRegistry) SetProgress(executionID, agentType string, phase models.Phase, percent int, message string) {
	sr.update(executionID, func(status *models.ExecutionStatus) {
		if agentType != "" {
			status.CurrentAgent = agentType
		}

		if phase != "" {
			status.CurrentPhase = phase
		}

		if percent >= 0 {
			status.Percent = percent
		}

		if message != "" {
			status.Message = message
		}
	})
}

// Finish transitions the entry to a terminal state and clears the active
// agent and phase.
func (sr *StatusRegistry) Finish(executionID string, state models.ExecutionState, message string) {
	sr.update(executionID, func(status *models.ExecutionStatus) {
		status.State = state
		status.CurrentAgent = ""
		status.CurrentPhase = ""
		status.Message = message

		if state == models.ExecutionStateCompleted {
			status.Percent = 100
		}
	})
}

// Cancel flips a RUNNING entry to CANCELLED. The transition is advisory: the
// worker executing the pipeline is not interrupted.
func (sr *StatusRegistry) Cancel(executionID string) bool {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	status, ok := sr.statuses[executionID]
	if !ok || status.State != models.ExecutionStateRunning {
		return false
	}

	status.State = models.ExecutionStateCancelled
	status.CurrentAgent = ""
	status.CurrentPhase = ""
	status.Message = "cancelled"

	return true
}

func (sr *StatusRegistry) update(executionID string, apply func(*models.ExecutionStatus)) {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	status, ok := sr.statuses[executionID]
	if !ok || status.State.IsTerminal() {
		return
	}

	apply(status)
}
