// Package planner provides the planning agent: it turns an intent into an
// ordered plan of steps for the ACT phase.
package planner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quartetdev/quartet/pkg/models"
	"github.com/quartetdev/quartet/pkg/protocol"
)

// Agent delegates plan construction to a planning service and publishes the
// resulting plan for later phases. It participates in PLAN only.
type Agent struct {
	service protocol.PlanningService
	logger  *slog.Logger
}

func NewAgent(logger *slog.Logger, service protocol.PlanningService) *Agent {
	return &Agent{
		service: service,
		logger:  logger.With("module", "planner_agent"),
	}
}

func (a *Agent) AgentType() string {
	return protocol.AgentTypePlanner
}

func (a *Agent) CanHandle(execCtx models.ExecutionContext) bool {
	return execCtx.Intent.Name != ""
}

func (a *Agent) Plan(ctx context.Context, execCtx models.ExecutionContext) (models.AgentResult, error) {
	plan, err := a.service.BuildPlan(ctx, execCtx)
	if err != nil {
		return models.AgentResult{}, fmt.Errorf("failed to build plan: %w", err)
	}

	if len(plan.Steps) == 0 {
		return models.AgentResult{}, fmt.Errorf("plan for intent %q has no steps", execCtx.Intent.Name)
	}

	a.logger.InfoContext(ctx, "Built plan", "execution_id", execCtx.ID, "plan_id", plan.ID, "steps", len(plan.Steps))

	data := map[string]any{
		models.KeyPlan: plan,
	}

	explanation := fmt.Sprintf("planned %d steps for %s on %s", len(plan.Steps), execCtx.Intent.Name, execCtx.Intent.Target)

	return models.NewSuccessResult(a.AgentType(), models.PhasePlan, data, explanation), nil
}

func (a *Agent) Act(_ context.Context, _ models.ExecutionContext) (models.AgentResult, error) {
	return models.NewSkippedResult(a.AgentType(), models.PhaseAct, "planner does not act"), nil
}

func (a *Agent) Observe(_ context.Context, _ models.ExecutionContext) (models.AgentResult, error) {
	return models.NewSkippedResult(a.AgentType(), models.PhaseObserve, "planner does not observe"), nil
}

func (a *Agent) Reflect(_ context.Context, _ models.ExecutionContext) (models.AgentResult, error) {
	return models.NewSkippedResult(a.AgentType(), models.PhaseReflect, "planner does not reflect"), nil
}
