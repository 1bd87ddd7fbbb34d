package runner

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quartetdev/quartet/pkg/eventbus"
	"github.com/quartetdev/quartet/pkg/events"
	"github.com/quartetdev/quartet/pkg/models"
	"github.com/quartetdev/quartet/pkg/orchestrator"
	"github.com/quartetdev/quartet/pkg/protocol"
	"github.com/quartetdev/quartet/pkg/registry"
)

// blockingAgent handles every phase; Plan blocks until release is closed.
// The other phases complete immediately.
type blockingAgent struct {
	release chan struct{}
	entered chan struct{}
	once    sync.Once
}

func newBlockingAgent() *blockingAgent {
	return &blockingAgent{
		release: make(chan struct{}),
		entered: make(chan struct{}),
	}
}

func (a *blockingAgent) Plan(_ context.Context, _ models.ExecutionContext) (models.AgentResult, error) {
	a.once.Do(func() { close(a.entered) })
	<-a.release

	return models.NewSuccessResult("blocker", models.PhasePlan, nil, ""), nil
}

func (a *blockingAgent) Act(_ context.Context, _ models.ExecutionContext) (models.AgentResult, error) {
	return models.NewSuccessResult("blocker", models.PhaseAct, nil, ""), nil
}

func (a *blockingAgent) Observe(_ context.Context, _ models.ExecutionContext) (models.AgentResult, error) {
	return models.NewSuccessResult("blocker", models.PhaseObserve, nil, ""), nil
}

func (a *blockingAgent) Reflect(_ context.Context, _ models.ExecutionContext) (models.AgentResult, error) {
	return models.NewSuccessResult("blocker", models.PhaseReflect, nil, ""), nil
}

func (a *blockingAgent) CanHandle(_ models.ExecutionContext) bool { return true }

func (a *blockingAgent) AgentType() string { return "blocker" }

// failingAgent fails its PLAN phase.
type failingAgent struct{}

func (failingAgent) Plan(_ context.Context, _ models.ExecutionContext) (models.AgentResult, error) {
	return models.NewFailureResult("planner", models.PhasePlan, "no viable plan", ""), nil
}

func (failingAgent) Act(_ context.Context, _ models.ExecutionContext) (models.AgentResult, error) {
	return models.NewSkippedResult("planner", models.PhaseAct, ""), nil
}

func (failingAgent) Observe(_ context.Context, _ models.ExecutionContext) (models.AgentResult, error) {
	return models.NewSkippedResult("planner", models.PhaseObserve, ""), nil
}

func (failingAgent) Reflect(_ context.Context, _ models.ExecutionContext) (models.AgentResult, error) {
	return models.NewSkippedResult("planner", models.PhaseReflect, ""), nil
}

func (failingAgent) CanHandle(_ models.ExecutionContext) bool { return true }

func (failingAgent) AgentType() string { return "planner" }

// completionCallback signals done once the terminal notification arrives.
type completionCallback struct {
	mu     sync.Mutex
	result models.ExecutionResult
	errMsg string
	done   chan struct{}
}

func newCompletionCallback() *completionCallback {
	return &completionCallback{done: make(chan struct{})}
}

func (c *completionCallback) OnPhaseStarted(string, models.Phase) {}

func (c *completionCallback) OnPhaseCompleted(string, models.AgentResult) {}

func (c *completionCallback) OnProgress(string, string, int) {}

func (c *completionCallback) OnComplete(result models.ExecutionResult) {
	c.mu.Lock()
	c.result = result
	c.mu.Unlock()
	close(c.done)
}

func (c *completionCallback) OnError(_ string, message string, _ error) {
	c.mu.Lock()
	c.errMsg = message
	c.mu.Unlock()
	close(c.done)
}

func (c *completionCallback) wait(t *testing.T) models.ExecutionResult {
	t.Helper()

	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for terminal callback")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.result
}

// recordingBus captures published events for inspection.
type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, _ string, event events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.published = append(b.published, event)

	return nil
}

func (b *recordingBus) Handle(events.EventType, eventbus.EventHandler) {}

func (b *recordingBus) Subscribe(context.Context) error { return nil }

func (b *recordingBus) Close(context.Context) error { return nil }

func (b *recordingBus) GenerateID() string { return "" }

func (b *recordingBus) byType(eventType events.EventType) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	var matched []events.Event

	for _, event := range b.published {
		if event.GetType() == eventType {
			matched = append(matched, event)
		}
	}

	return matched
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRunner(t *testing.T, agents ...protocol.Agent) *Runner {
	t.Helper()

	reg := registry.NewRegistry(testLogger())
	for _, agent := range agents {
		reg.Register(agent)
	}

	orch := orchestrator.NewOrchestrator(testLogger(), reg, nil, nil)
	runner := NewRunnerWithWorkers(testLogger(), orch, 2)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = runner.Shutdown(ctx)
	})

	return runner
}

func TestRunner_ExecuteAsync_ReturnsImmediatelyAndCompletes(t *testing.T) {
	agent := newBlockingAgent()
	close(agent.release)

	runner := newTestRunner(t, agent)
	callback := newCompletionCallback()

	executionID := runner.ExecuteAsync(models.Intent{Name: "deploy", Target: "api"}, models.ProjectState{}, "u", "p", callback)
	require.NotEmpty(t, executionID)

	result := callback.wait(t)
	assert.Equal(t, executionID, result.ExecutionID)
	assert.Equal(t, models.ResultStatusSuccess, result.OverallStatus)

	status, ok := runner.GetExecutionStatus(executionID)
	require.True(t, ok)
	assert.Equal(t, models.ExecutionStateCompleted, status.State)
	assert.Equal(t, 100, status.Percent)
}

func TestRunner_ExecuteAsync_FailureMarksFailed(t *testing.T) {
	runner := newTestRunner(t, failingAgent{})
	callback := newCompletionCallback()

	executionID := runner.ExecuteAsync(models.Intent{Name: "deploy", Target: "api"}, models.ProjectState{}, "", "", callback)

	result := callback.wait(t)
	assert.Equal(t, models.ResultStatusFailure, result.OverallStatus)

	status, ok := runner.GetExecutionStatus(executionID)
	require.True(t, ok)
	assert.Equal(t, models.ExecutionStateFailed, status.State)
}

func TestRunner_GetExecutionStatus_Unknown(t *testing.T) {
	runner := newTestRunner(t)

	_, ok := runner.GetExecutionStatus("exec-missing1")
	assert.False(t, ok)
}

func TestRunner_CancelExecution_RunningOnly(t *testing.T) {
	agent := newBlockingAgent()
	runner := newTestRunner(t, agent)
	callback := newCompletionCallback()

	executionID := runner.ExecuteAsync(models.Intent{Name: "deploy", Target: "api"}, models.ProjectState{}, "", "", callback)

	// Wait until the worker is inside PLAN, so the status is RUNNING.
	select {
	case <-agent.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("agent never started")
	}

	assert.True(t, runner.CancelExecution(executionID))

	status, ok := runner.GetExecutionStatus(executionID)
	require.True(t, ok)
	assert.Equal(t, models.ExecutionStateCancelled, status.State)

	// Cancelling twice fails; the entry is already terminal.
	assert.False(t, runner.CancelExecution(executionID))

	// The worker keeps going and still delivers its terminal result, but the
	// tracked status stays CANCELLED.
	close(agent.release)
	result := callback.wait(t)
	assert.Equal(t, models.ResultStatusSuccess, result.OverallStatus)

	status, _ = runner.GetExecutionStatus(executionID)
	assert.Equal(t, models.ExecutionStateCancelled, status.State)
}

func TestRunner_CancelExecution_PublishesCancelledEvent(t *testing.T) {
	agent := newBlockingAgent()
	bus := &recordingBus{}

	reg := registry.NewRegistry(testLogger())
	reg.Register(agent)

	orch := orchestrator.NewOrchestrator(testLogger(), reg, nil, bus)
	runner := NewRunnerWithWorkers(testLogger(), orch, 1)
	callback := newCompletionCallback()

	executionID := runner.ExecuteAsync(models.Intent{Name: "deploy", Target: "api"}, models.ProjectState{}, "", "", callback)

	select {
	case <-agent.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("agent never started")
	}

	require.True(t, runner.CancelExecution(executionID))

	cancelled := bus.byType(events.ExecutionCancelledEvent)
	require.Len(t, cancelled, 1)

	event, ok := cancelled[0].(events.ExecutionCancelled)
	require.True(t, ok)
	assert.Equal(t, executionID, event.ExecutionID)

	// A rejected cancel publishes nothing.
	assert.False(t, runner.CancelExecution(executionID))
	assert.Len(t, bus.byType(events.ExecutionCancelledEvent), 1)

	close(agent.release)
	callback.wait(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, runner.Shutdown(ctx))
}

func TestRunner_CancelExecution_QueuedIsNotCancellable(t *testing.T) {
	blocker := newBlockingAgent()
	reg := registry.NewRegistry(testLogger())
	reg.Register(blocker)

	orch := orchestrator.NewOrchestrator(testLogger(), reg, nil, nil)
	runner := NewRunnerWithWorkers(testLogger(), orch, 1)

	first := newCompletionCallback()
	second := newCompletionCallback()

	running := runner.ExecuteAsync(models.Intent{Name: "a", Target: "t"}, models.ProjectState{}, "", "", first)

	select {
	case <-blocker.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first execution never started")
	}

	// With the single worker busy, the second submission stays QUEUED.
	queued := runner.ExecuteAsync(models.Intent{Name: "b", Target: "t"}, models.ProjectState{}, "", "", second)

	status, ok := runner.GetExecutionStatus(queued)
	require.True(t, ok)
	assert.Equal(t, models.ExecutionStateQueued, status.State)

	assert.False(t, runner.CancelExecution(queued))

	close(blocker.release)
	first.wait(t)
	second.wait(t)

	status, _ = runner.GetExecutionStatus(running)
	assert.Equal(t, models.ExecutionStateCompleted, status.State)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, runner.Shutdown(ctx))
}

func TestRunner_CancelExecution_CompletedIsNotCancellable(t *testing.T) {
	agent := newBlockingAgent()
	close(agent.release)

	runner := newTestRunner(t, agent)
	callback := newCompletionCallback()

	executionID := runner.ExecuteAsync(models.Intent{Name: "deploy", Target: "api"}, models.ProjectState{}, "", "", callback)
	callback.wait(t)

	assert.False(t, runner.CancelExecution(executionID))
}

func TestRunner_QueueDrainsInOrder(t *testing.T) {
	agent := newBlockingAgent()
	close(agent.release)

	reg := registry.NewRegistry(testLogger())
	reg.Register(agent)

	orch := orchestrator.NewOrchestrator(testLogger(), reg, nil, nil)
	runner := NewRunnerWithWorkers(testLogger(), orch, 1)

	callbacks := make([]*completionCallback, 5)
	ids := make([]string, 5)

	for i := range callbacks {
		callbacks[i] = newCompletionCallback()
		ids[i] = runner.ExecuteAsync(models.Intent{Name: "deploy", Target: "api"}, models.ProjectState{}, "", "", callbacks[i])
	}

	for i, callback := range callbacks {
		result := callback.wait(t)
		assert.Equal(t, ids[i], result.ExecutionID)

		status, ok := runner.GetExecutionStatus(ids[i])
		require.True(t, ok)
		assert.Equal(t, models.ExecutionStateCompleted, status.State)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, runner.Shutdown(ctx))
}

func TestRunner_ExecuteAsync_AfterShutdown(t *testing.T) {
	runner := newTestRunner(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, runner.Shutdown(ctx))

	callback := newCompletionCallback()
	executionID := runner.ExecuteAsync(models.Intent{Name: "deploy", Target: "api"}, models.ProjectState{}, "", "", callback)
	require.NotEmpty(t, executionID)

	callback.wait(t)
	assert.Equal(t, "runner is shut down", callback.errMsg)

	status, ok := runner.GetExecutionStatus(executionID)
	require.True(t, ok)
	assert.Equal(t, models.ExecutionStateFailed, status.State)
}

func TestStatusRegistry_Lifecycle(t *testing.T) {
	statuses := NewStatusRegistry()
	statuses.Track("exec-1")

	status, ok := statuses.Get("exec-1")
	require.True(t, ok)
	assert.Equal(t, models.ExecutionStateQueued, status.State)

	statuses.MarkRunning("exec-1")
	statuses.SetProgress("exec-1", "planner", models.PhasePlan, 25, "planning")

	status, _ = statuses.Get("exec-1")
	assert.Equal(t, models.ExecutionStateRunning, status.State)
	assert.Equal(t, "planner", status.CurrentAgent)
	assert.Equal(t, models.PhasePlan, status.CurrentPhase)
	assert.Equal(t, 25, status.Percent)

	// Empty fields and negative percent leave earlier values alone.
	statuses.SetProgress("exec-1", "", "", -1, "")

	status, _ = statuses.Get("exec-1")
	assert.Equal(t, "planner", status.CurrentAgent)
	assert.Equal(t, 25, status.Percent)

	statuses.Finish("exec-1", models.ExecutionStateCompleted, "done")

	status, _ = statuses.Get("exec-1")
	assert.Equal(t, models.ExecutionStateCompleted, status.State)
	assert.Empty(t, status.CurrentAgent)
	assert.Empty(t, status.CurrentPhase)
	assert.Equal(t, 100, status.Percent)

	// Terminal entries are frozen.
	statuses.MarkRunning("exec-1")

	status, _ = statuses.Get("exec-1")
	assert.Equal(t, models.ExecutionStateCompleted, status.State)
}
