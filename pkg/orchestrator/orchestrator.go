// Package orchestrator runs the four-phase agent pipeline over an accumulating
// execution context.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/quartetdev/quartet/pkg/eventbus"
	"github.com/quartetdev/quartet/pkg/events"
	"github.com/quartetdev/quartet/pkg/models"
	"github.com/quartetdev/quartet/pkg/otelhelper"
	"github.com/quartetdev/quartet/pkg/persistence"
	"github.com/quartetdev/quartet/pkg/protocol"
	"github.com/quartetdev/quartet/pkg/registry"
)

// DefaultTimeout is the deadline stamped on every execution context.
const DefaultTimeout = 300 * time.Second

// phasePreferences maps each phase to the agent type name preferred for it.
var phasePreferences = map[models.Phase]string{
	models.PhasePlan:    protocol.AgentTypePlanner,
	models.PhaseAct:     protocol.AgentTypeExecutor,
	models.PhaseObserve: protocol.AgentTypeValidator,
	models.PhaseReflect: protocol.AgentTypeReflection,
}

// Orchestrator sequences registered agents through PLAN, ACT, OBSERVE and
// REFLECT over one execution context per run. Trace persistence and the event
// bus are optional collaborators; both are best-effort and never change the
// returned result.
type Orchestrator struct {
	registry *registry.Registry
	traces   persistence.TraceRepository
	eventBus eventbus.EventBus
	tracer   trace.Tracer
	logger   *slog.Logger
	timeout  time.Duration
}

func NewOrchestrator(logger *slog.Logger, reg *registry.Registry, traces persistence.TraceRepository, bus eventbus.EventBus) *Orchestrator {
	return &Orchestrator{
		registry: reg,
		traces:   traces,
		eventBus: bus,
		logger:   logger.With("module", "orchestrator"),
		timeout:  DefaultTimeout,
	}
}

// SetTimeout overrides the default execution deadline window.
func (o *Orchestrator) SetTimeout(timeout time.Duration) {
	o.timeout = timeout
}

// SetTracer enables OTEL spans for executions and phases.
func (o *Orchestrator) SetTracer(tracer trace.Tracer) {
	o.tracer = tracer
}

// Registry exposes the agent registry for the management surface.
func (o *Orchestrator) Registry() *registry.Registry {
	return o.registry
}

// Execute runs the full pipeline synchronously and always returns a result:
// business-level failures surface as phase results, and anything thrown
// outside a phase call becomes a failure result with an empty history.
func (o *Orchestrator) Execute(ctx context.Context, intent models.Intent, state models.ProjectState, userID, projectID string) models.ExecutionResult {
	return o.ExecuteWithID(ctx, NewExecutionID(), intent, state, userID, projectID, protocol.NoopCallback{})
}

// ExecuteWithCallback is Execute with progress notifications.
func (o *Orchestrator) ExecuteWithCallback(ctx context.Context, intent models.Intent, state models.ProjectState, userID, projectID string, callback protocol.ProgressCallback) models.ExecutionResult {
	return o.ExecuteWithID(ctx, NewExecutionID(), intent, state, userID, projectID, callback)
}

// ExecuteWithID runs the pipeline under a caller-supplied execution ID. The
// async runner generates the ID at submission so status queries work before
// the pipeline starts.
func (o *Orchestrator) ExecuteWithID(ctx context.Context, executionID string, intent models.Intent, state models.ProjectState, userID, projectID string, callback protocol.ProgressCallback) (result models.ExecutionResult) {
	startedAt := time.Now()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Execution panicked outside a phase", "execution_id", executionID, "panic", r)

			result = models.NewExecutionResult(executionID, nil, startedAt, time.Now())
			result.OverallStatus = models.ResultStatusFailure
			result.Summary = fmt.Sprintf("execution failed: %v", r)
		}
	}()

	logger := o.logger.With("execution_id", executionID, "intent", intent.Name, "target", intent.Target)
	logger.Info("Starting execution")

	if o.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, o.tracer, "execute",
			attribute.String(otelhelper.ExecutionIDKey, executionID),
			attribute.String(otelhelper.IntentNameKey, intent.Name),
			attribute.String(otelhelper.UserIDKey, userID),
			attribute.String(otelhelper.ProjectIDKey, projectID),
		)
		defer span.End()
	}

	execCtx := models.ExecutionContext{
		ID:        executionID,
		Intent:    intent,
		State:     state,
		UserID:    userID,
		ProjectID: projectID,
		Deadline:  startedAt.Add(o.timeout),
	}

	o.publish(ctx, executionID, events.ExecutionStarted{
		BaseEvent: events.NewBaseEvent(events.ExecutionStartedEvent, executionID),
		Intent:    intent,
		UserID:    userID,
		ProjectID: projectID,
	})

	for i, phase := range models.Phases {
		agent, skipReason := o.selectForPhase(phase, execCtx)
		if agent == nil {
			logger.Info("Skipping phase", "phase", phase, "reason", skipReason)

			continue
		}

		callback.OnPhaseStarted(executionID, phase)
		callback.OnProgress(executionID, fmt.Sprintf("running %s", phase), i*100/len(models.Phases))

		phaseResult := o.runPhase(ctx, logger, agent, phase, execCtx)
		execCtx = execCtx.WithResult(phaseResult)

		callback.OnPhaseCompleted(executionID, phaseResult)
		o.publish(ctx, executionID, events.PhaseCompleted{
			BaseEvent: events.NewBaseEvent(events.PhaseCompletedEvent, executionID),
			Phase:     phase,
			Status:    phaseResult.Status,
		})
	}

	completedAt := time.Now()
	result = models.NewExecutionResult(executionID, execCtx.Results, startedAt, completedAt)

	o.persistTrace(ctx, logger, result, intent, userID, projectID)

	if result.OverallStatus == models.ResultStatusFailure {
		o.publish(ctx, executionID, events.ExecutionFailed{
			BaseEvent: events.NewBaseEvent(events.ExecutionFailedEvent, executionID),
			Error:     result.Summary,
		})
	} else {
		o.publish(ctx, executionID, events.ExecutionCompleted{
			BaseEvent:     events.NewBaseEvent(events.ExecutionCompletedEvent, executionID),
			OverallStatus: result.OverallStatus,
			DurationMs:    result.DurationMs,
		})
	}

	callback.OnProgress(executionID, "execution finished", 100)
	logger.Info("Completed execution", "overall_status", result.OverallStatus, "duration_ms", result.DurationMs)

	return result
}

// selectForPhase applies the gating rules and agent selection for one phase.
// A nil agent means the phase is skipped with no result appended.
func (o *Orchestrator) selectForPhase(phase models.Phase, execCtx models.ExecutionContext) (protocol.Agent, string) {
	switch phase {
	case models.PhaseAct:
		if planResult, ok := execCtx.LastResultByPhase(models.PhasePlan); ok && planResult.Status == models.ResultStatusFailure {
			return nil, "planning failed"
		}
	case models.PhaseObserve:
		if planResult, ok := execCtx.LastResultByPhase(models.PhasePlan); ok && planResult.Status == models.ResultStatusFailure {
			return nil, "planning failed"
		}

		if actResult, ok := execCtx.LastResultByPhase(models.PhaseAct); ok && actResult.Status == models.ResultStatusFailure {
			return nil, "execution failed"
		}
	}

	agent := o.registry.Select(phasePreferences[phase], execCtx)
	if agent == nil {
		return nil, "no capable agent registered"
	}

	return agent, ""
}

// runPhase invokes one agent phase method, containing errors and panics to a
// failure result so a misbehaving agent never aborts the pipeline.
func (o *Orchestrator) runPhase(ctx context.Context, logger *slog.Logger, agent protocol.Agent, phase models.Phase, execCtx models.ExecutionContext) (phaseResult models.AgentResult) {
	logger = logger.With("phase", phase, "agent_type", agent.AgentType())

	if execCtx.PastDeadline(time.Now()) {
		logger.Warn("Phase starting past the execution deadline")
	}

	if o.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, o.tracer, string(phase),
			attribute.String(otelhelper.ExecutionIDKey, execCtx.ID),
			attribute.String(otelhelper.PhaseKey, string(phase)),
			attribute.String(otelhelper.AgentTypeKey, agent.AgentType()),
		)
		defer func() {
			if phaseResult.Status == models.ResultStatusFailure {
				otelhelper.SetError(span, fmt.Errorf("%s", phaseResult.Error))
			}

			span.End()
		}()
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Agent panicked", "panic", r)

			phaseResult = models.NewFailureResult(agent.AgentType(), phase, fmt.Sprintf("%v", r), "agent panicked")
		}
	}()

	o.publish(ctx, execCtx.ID, events.PhaseStarted{
		BaseEvent: events.NewBaseEvent(events.PhaseStartedEvent, execCtx.ID),
		Phase:     phase,
		AgentType: agent.AgentType(),
	})

	logger.Info("Running phase")

	var (
		result models.AgentResult
		err    error
	)

	switch phase {
	case models.PhasePlan:
		result, err = agent.Plan(ctx, execCtx)
	case models.PhaseAct:
		result, err = agent.Act(ctx, execCtx)
	case models.PhaseObserve:
		result, err = agent.Observe(ctx, execCtx)
	case models.PhaseReflect:
		result, err = agent.Reflect(ctx, execCtx)
	}

	if err != nil {
		logger.Error("Phase failed", "error", err)

		return models.NewFailureResult(agent.AgentType(), phase, err.Error(), "agent returned an error")
	}

	logger.Info("Phase completed", "status", result.Status)

	return result
}

// PublishCancelled emits the cancelled lifecycle event for an execution whose
// tracked status was flipped by the async runner. Best-effort like every
// other lifecycle event.
func (o *Orchestrator) PublishCancelled(ctx context.Context, executionID string) {
	o.publish(ctx, executionID, events.ExecutionCancelled{
		BaseEvent: events.NewBaseEvent(events.ExecutionCancelledEvent, executionID),
	})
}

// persistTrace hands the result to the trace store. Failures are logged and
// swallowed.
func (o *Orchestrator) persistTrace(ctx context.Context, logger *slog.Logger, result models.ExecutionResult, intent models.Intent, userID, projectID string) {
	if o.traces == nil {
		return
	}

	record := &models.ExecutionTrace{
		Result:    result,
		Intent:    intent,
		UserID:    userID,
		ProjectID: projectID,
		CreatedAt: time.Now(),
	}

	if err := o.traces.SaveTrace(ctx, record); err != nil {
		logger.Error("Failed to persist execution trace", "error", err)
	}
}

// publish emits a lifecycle event on the bus, best-effort.
func (o *Orchestrator) publish(ctx context.Context, executionID string, event events.Event) {
	if o.eventBus == nil {
		return
	}

	if err := o.eventBus.Publish(ctx, executionID, event); err != nil {
		o.logger.Error("Failed to publish event", "execution_id", executionID, "event_type", event.GetType(), "error", err)
	}
}

// NewExecutionID generates a unique execution ID.
func NewExecutionID() string {
	return fmt.Sprintf("exec-%s", uuid.New().String()[:8])
}
