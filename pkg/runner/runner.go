// Package runner executes the orchestrator pipeline off the caller's
// goroutine on a bounded worker pool.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/quartetdev/quartet/pkg/models"
	"github.com/quartetdev/quartet/pkg/orchestrator"
	"github.com/quartetdev/quartet/pkg/protocol"
)

// DefaultWorkerCount is the fixed size of the worker pool. Submissions beyond
// it queue in arrival order; nothing is rejected.
const DefaultWorkerCount = 10

type job struct {
	executionID string
	intent      models.Intent
	state       models.ProjectState
	userID      string
	projectID   string
	callback    protocol.ProgressCallback
}

// Runner dispatches executions onto a fixed pool of workers and tracks their
// status. Cancellation is advisory: it flips the tracked status and leaves
// the worker running.
type Runner struct {
	orchestrator *orchestrator.Orchestrator
	statuses     *StatusRegistry
	logger       *slog.Logger
	workers      int

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []job
	closed bool
	wg     sync.WaitGroup
}

func NewRunner(logger *slog.Logger, orch *orchestrator.Orchestrator) *Runner {
	return NewRunnerWithWorkers(logger, orch, DefaultWorkerCount)
}

func NewRunnerWithWorkers(logger *slog.Logger, orch *orchestrator.Orchestrator, workers int) *Runner {
	r := &Runner{
		orchestrator: orch,
		statuses:     NewStatusRegistry(),
		logger:       logger.With("module", "runner"),
		workers:      workers,
	}
	r.cond = sync.NewCond(&r.mu)

	for i := 0; i < workers; i++ {
		r.wg.Add(1)

		go r.worker(i)
	}

	return r
}

// ExecuteAsync submits an execution and returns its identifier immediately.
// The callback receives phase notifications and exactly one terminal
// OnComplete or OnError.
func (r *Runner) ExecuteAsync(intent models.Intent, state models.ProjectState, userID, projectID string, callback protocol.ProgressCallback) string {
	executionID := orchestrator.NewExecutionID()

	if callback == nil {
		callback = protocol.NoopCallback{}
	}

	r.statuses.Track(executionID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		r.statuses.MarkRunning(executionID)
		r.statuses.Finish(executionID, models.ExecutionStateFailed, "runner is shut down")
		callback.OnError(executionID, "runner is shut down", nil)

		return executionID
	}

	r.queue = append(r.queue, job{
		executionID: executionID,
		intent:      intent,
		state:       state,
		userID:      userID,
		projectID:   projectID,
		callback:    callback,
	})
	r.cond.Signal()

	return executionID
}

// GetExecutionStatus returns the tracked status for the identifier.
func (r *Runner) GetExecutionStatus(executionID string) (models.ExecutionStatus, bool) {
	return r.statuses.Get(executionID)
}

// CancelExecution cancels a RUNNING execution. The cancellation is advisory:
// the underlying worker completes independently and its result is still
// persisted, but the status stays CANCELLED.
func (r *Runner) CancelExecution(executionID string) bool {
	cancelled := r.statuses.Cancel(executionID)
	if cancelled {
		r.logger.Info("Cancelled execution", "execution_id", executionID)
		r.orchestrator.PublishCancelled(context.Background(), executionID)
	}

	return cancelled
}

// Shutdown stops accepting submissions and waits for queued work to drain.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.cond.Broadcast()
	r.mu.Unlock()

	done := make(chan struct{})

	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) worker(id int) {
	defer r.wg.Done()

	logger := r.logger.With("worker_id", id)

	for {
		r.mu.Lock()
		for len(r.queue) == 0 && !r.closed {
			r.cond.Wait()
		}

		if len(r.queue) == 0 && r.closed {
			r.mu.Unlock()

			return
		}

		next := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()

		r.dispatch(logger, next)
	}
}

func (r *Runner) dispatch(logger *slog.Logger, work job) {
	defer func() {
		if rec := recover(); rec != nil {
			message := fmt.Sprintf("execution dispatch panicked: %v", rec)
			logger.Error("Dispatch failed", "execution_id", work.executionID, "panic", rec)

			r.statuses.Finish(work.executionID, models.ExecutionStateFailed, message)
			work.callback.OnError(work.executionID, message, fmt.Errorf("%v", rec))
		}
	}()

	logger.Info("Dispatching execution", "execution_id", work.executionID, "intent", work.intent.Name)
	r.statuses.MarkRunning(work.executionID)

	callback := &trackingCallback{inner: work.callback, statuses: r.statuses}
	result := r.orchestrator.ExecuteWithID(context.Background(), work.executionID, work.intent, work.state, work.userID, work.projectID, callback)

	if result.OverallStatus == models.ResultStatusFailure {
		r.statuses.Finish(work.executionID, models.ExecutionStateFailed, result.Summary)
	} else {
		r.statuses.Finish(work.executionID, models.ExecutionStateCompleted, result.Summary)
	}

	work.callback.OnComplete(result)
}

// trackingCallback mirrors progress notifications into the status registry
// before forwarding them.
type trackingCallback struct {
	inner    protocol.ProgressCallback
	statuses *StatusRegistry
}

func (t *trackingCallback) OnPhaseStarted(executionID string, phase models.Phase) {
	t.statuses.SetProgress(executionID, "", phase, -1, "")
	t.inner.OnPhaseStarted(executionID, phase)
}

func (t *trackingCallback) OnPhaseCompleted(executionID string, result models.AgentResult) {
	t.statuses.SetProgress(executionID, result.AgentType, result.Phase, -1, "")
	t.inner.OnPhaseCompleted(executionID, result)
}

func (t *trackingCallback) OnProgress(executionID string, message string, percent int) {
	t.statuses.SetProgress(executionID, "", "", percent, message)
	t.inner.OnProgress(executionID, message, percent)
}

func (t *trackingCallback) OnComplete(result models.ExecutionResult) {
	// Terminal bookkeeping happens in dispatch; the inner callback is also
	// notified there, exactly once.
}

func (t *trackingCallback) OnError(executionID string, message string, err error) {
	t.inner.OnError(executionID, message, err)
}
