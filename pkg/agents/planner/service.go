package planner

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/quartetdev/quartet/pkg/models"
)

// IntentPlanningService is a deterministic planning service: it reads the
// step list the caller attached to the intent's "steps" modifier, or falls
// back to a single step running the intent name against its target. Real
// deployments substitute an inference-backed service here.
type IntentPlanningService struct{}

func NewIntentPlanningService() *IntentPlanningService {
	return &IntentPlanningService{}
}

func (s *IntentPlanningService) BuildPlan(_ context.Context, execCtx models.ExecutionContext) (*models.Plan, error) {
	plan := &models.Plan{
		ID:        "plan-" + uuid.New().String()[:8],
		RiskLevel: "low",
	}

	rawSteps, ok := execCtx.Intent.Modifiers["steps"].([]any)
	if !ok {
		plan.Steps = []models.PlanStep{
			{
				ID:     "step-1",
				Name:   execCtx.Intent.Name,
				Action: execCtx.Intent.Name,
				Params: map[string]any{"target": execCtx.Intent.Target},
			},
		}

		return plan, nil
	}

	for i, raw := range rawSteps {
		stepMap, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("step %d of intent %q is not an object", i, execCtx.Intent.Name)
		}

		step, err := decodeStep(i, stepMap)
		if err != nil {
			return nil, err
		}

		plan.Steps = append(plan.Steps, step)
	}

	return plan, nil
}

func decodeStep(index int, stepMap map[string]any) (models.PlanStep, error) {
	step := models.PlanStep{
		ID:     fmt.Sprintf("step-%d", index+1),
		Params: map[string]any{},
	}

	if id, ok := stepMap["id"].(string); ok && id != "" {
		step.ID = id
	}

	action, ok := stepMap["action"].(string)
	if !ok || action == "" {
		return models.PlanStep{}, fmt.Errorf("step %s has no action", step.ID)
	}

	step.Action = action
	step.Name = action

	if name, ok := stepMap["name"].(string); ok && name != "" {
		step.Name = name
	}

	if params, ok := stepMap["params"].(map[string]any); ok {
		step.Params = params
	}

	if schema, ok := stepMap["output_schema"].(map[string]any); ok {
		step.OutputSchema = schema
	}

	if deps, ok := stepMap["depends_on"].([]any); ok {
		for _, dep := range deps {
			if depID, ok := dep.(string); ok {
				step.DependsOn = append(step.DependsOn, depID)
			}
		}
	}

	return step, nil
}
