// Package executor provides the execution agent: it walks the planned steps
// in order, retrying each one with backoff before giving up on the plan.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quartetdev/quartet/pkg/models"
	"github.com/quartetdev/quartet/pkg/protocol"
)

const (
	// MaxAttempts is the per-step retry ceiling.
	MaxAttempts = 3

	// DefaultBackoffUnit scales the delay between attempts: attempt N waits
	// N backoff units before retrying.
	DefaultBackoffUnit = time.Second
)

// Agent executes the plan published by the PLAN phase. Each step may depend
// on outputs of earlier steps; a missing dependency fails the step
// immediately, and the first step to exhaust its retries aborts the rest of
// the plan. It participates in ACT only.
type Agent struct {
	runner      protocol.StepRunner
	logger      *slog.Logger
	backoffUnit time.Duration
}

func NewAgent(logger *slog.Logger, runner protocol.StepRunner) *Agent {
	return &Agent{
		runner:      runner,
		logger:      logger.With("module", "executor_agent"),
		backoffUnit: DefaultBackoffUnit,
	}
}

// SetBackoffUnit overrides the backoff scale. Tests shrink it.
func (a *Agent) SetBackoffUnit(unit time.Duration) {
	a.backoffUnit = unit
}

func (a *Agent) AgentType() string {
	return protocol.AgentTypeExecutor
}

func (a *Agent) CanHandle(execCtx models.ExecutionContext) bool {
	_, ok := models.PlanFromContext(execCtx)

	return ok
}

func (a *Agent) Act(ctx context.Context, execCtx models.ExecutionContext) (models.AgentResult, error) {
	plan, ok := models.PlanFromContext(execCtx)
	if !ok {
		return models.AgentResult{}, fmt.Errorf("no plan available for execution %s", execCtx.ID)
	}

	logger := a.logger.With("execution_id", execCtx.ID, "plan_id", plan.ID)
	logger.InfoContext(ctx, "Executing plan", "steps", len(plan.Steps))

	outputs := make(map[string]any, len(plan.Steps))
	outcomes := make([]models.StepOutcome, 0, len(plan.Steps))

	for _, step := range plan.Steps {
		outcome := a.runStep(ctx, logger, step, outputs)
		outcomes = append(outcomes, outcome)

		if outcome.Status == models.ResultStatusFailure {
			data := map[string]any{
				models.KeyStepOutputs:  outputs,
				models.KeyStepOutcomes: outcomes,
				models.KeyFailedStep:   step.ID,
			}

			result := models.NewFailureResult(a.AgentType(), models.PhaseAct,
				fmt.Sprintf("step %s failed: %s", step.ID, outcome.Error),
				fmt.Sprintf("aborted plan after step %s, %d of %d steps attempted", step.ID, len(outcomes), len(plan.Steps)))
			result.Data = data

			return result, nil
		}

		outputs[step.ID] = outcome.Output
	}

	data := map[string]any{
		models.KeyStepOutputs:  outputs,
		models.KeyStepOutcomes: outcomes,
	}

	explanation := fmt.Sprintf("executed %d steps of plan %s", len(outcomes), plan.ID)

	return models.NewSuccessResult(a.AgentType(), models.PhaseAct, data, explanation), nil
}

// runStep attempts one step up to MaxAttempts times. The backoff before
// attempt N+1 is N backoff units, a blocking sleep on the worker.
func (a *Agent) runStep(ctx context.Context, logger *slog.Logger, step models.PlanStep, outputs map[string]any) models.StepOutcome {
	inputs := make(map[string]any, len(step.DependsOn))

	for _, dep := range step.DependsOn {
		output, ok := outputs[dep]
		if !ok {
			logger.WarnContext(ctx, "Step dependency not met", "step_id", step.ID, "dependency", dep)

			return models.StepOutcome{
				StepID: step.ID,
				Status: models.ResultStatusFailure,
				Error:  fmt.Sprintf("dependency not met: %s", dep),
			}
		}

		inputs[dep] = output
	}

	var (
		lastErr   error
		backoffMs int64
	)

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		output, err := a.runner.RunStep(ctx, step, inputs)
		if err == nil {
			return models.StepOutcome{
				StepID:    step.ID,
				Status:    models.ResultStatusSuccess,
				Attempts:  attempt,
				BackoffMs: backoffMs,
				Output:    output,
			}
		}

		lastErr = err
		logger.WarnContext(ctx, "Step attempt failed", "step_id", step.ID, "attempt", attempt, "error", err)

		if attempt < MaxAttempts {
			delay := time.Duration(attempt) * a.backoffUnit
			backoffMs += delay.Milliseconds()
			time.Sleep(delay)
		}
	}

	return models.StepOutcome{
		StepID:    step.ID,
		Status:    models.ResultStatusFailure,
		Attempts:  MaxAttempts,
		BackoffMs: backoffMs,
		Error:     lastErr.Error(),
	}
}

func (a *Agent) Plan(_ context.Context, _ models.ExecutionContext) (models.AgentResult, error) {
	return models.NewSkippedResult(a.AgentType(), models.PhasePlan, "executor does not plan"), nil
}

func (a *Agent) Observe(_ context.Context, _ models.ExecutionContext) (models.AgentResult, error) {
	return models.NewSkippedResult(a.AgentType(), models.PhaseObserve, "executor does not observe"), nil
}

func (a *Agent) Reflect(_ context.Context, _ models.ExecutionContext) (models.AgentResult, error) {
	return models.NewSkippedResult(a.AgentType(), models.PhaseReflect, "executor does not reflect"), nil
}
