package protocol

import "github.com/quartetdev/quartet/pkg/models"

// ProgressCallback receives notifications from the async execution path.
// Callbacks are invoked from worker goroutines; implementations must be safe
// for concurrent use when shared across submissions.
type ProgressCallback interface {
	// OnPhaseStarted is called when a phase begins.
	OnPhaseStarted(executionID string, phase models.Phase)

	// OnPhaseCompleted is called with the result a phase appended.
	OnPhaseCompleted(executionID string, result models.AgentResult)

	// OnProgress reports coarse progress, percent in [0, 100].
	OnProgress(executionID string, message string, percent int)

	// OnComplete is called exactly once with the terminal result.
	OnComplete(result models.ExecutionResult)

	// OnError is called instead of OnComplete when the execution could not
	// produce a result at all.
	OnError(executionID string, message string, err error)
}

// NoopCallback is a ProgressCallback that discards every notification.
type NoopCallback struct{}

func (NoopCallback) OnPhaseStarted(string, models.Phase) {}

func (NoopCallback) OnPhaseCompleted(string, models.AgentResult) {}

func (NoopCallback) OnProgress(string, string, int) {}

func (NoopCallback) OnComplete(models.ExecutionResult) {}

func (NoopCallback) OnError(string, string, error) {}
