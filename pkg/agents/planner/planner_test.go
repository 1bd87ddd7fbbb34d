package planner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quartetdev/quartet/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type planServiceFunc func(ctx context.Context, execCtx models.ExecutionContext) (*models.Plan, error)

func (f planServiceFunc) BuildPlan(ctx context.Context, execCtx models.ExecutionContext) (*models.Plan, error) {
	return f(ctx, execCtx)
}

func TestAgent_CanHandle(t *testing.T) {
	agent := NewAgent(testLogger(), NewIntentPlanningService())

	assert.False(t, agent.CanHandle(models.ExecutionContext{}))
	assert.True(t, agent.CanHandle(models.ExecutionContext{
		Intent: models.Intent{Name: "deploy"},
	}))
}

func TestAgent_Plan_PublishesPlan(t *testing.T) {
	agent := NewAgent(testLogger(), NewIntentPlanningService())

	execCtx := models.ExecutionContext{
		ID:     "exec-test1",
		Intent: models.Intent{Name: "deploy", Target: "api-service"},
	}

	result, err := agent.Plan(context.Background(), execCtx)
	require.NoError(t, err)
	assert.Equal(t, models.ResultStatusSuccess, result.Status)

	// The published plan must be retrievable by later phases.
	next := execCtx.WithResult(result)
	plan, ok := models.PlanFromContext(next)
	require.True(t, ok)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "deploy", plan.Steps[0].Action)
	assert.Equal(t, "api-service", plan.Steps[0].Params["target"])
}

func TestAgent_Plan_ServiceError(t *testing.T) {
	service := planServiceFunc(func(_ context.Context, _ models.ExecutionContext) (*models.Plan, error) {
		return nil, errors.New("inference backend down")
	})

	agent := NewAgent(testLogger(), service)

	_, err := agent.Plan(context.Background(), models.ExecutionContext{
		Intent: models.Intent{Name: "deploy", Target: "api"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inference backend down")
}

func TestAgent_Plan_EmptyPlanIsAnError(t *testing.T) {
	service := planServiceFunc(func(_ context.Context, _ models.ExecutionContext) (*models.Plan, error) {
		return &models.Plan{ID: "plan-empty"}, nil
	})

	agent := NewAgent(testLogger(), service)

	_, err := agent.Plan(context.Background(), models.ExecutionContext{
		Intent: models.Intent{Name: "deploy", Target: "api"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no steps")
}

func TestIntentPlanningService_StepsFromModifiers(t *testing.T) {
	service := NewIntentPlanningService()

	execCtx := models.ExecutionContext{
		Intent: models.Intent{
			Name:   "deploy",
			Target: "api",
			Modifiers: map[string]any{
				"steps": []any{
					map[string]any{
						"id":     "build",
						"action": "compile",
						"params": map[string]any{"profile": "release"},
					},
					map[string]any{
						"action":     "rollout",
						"depends_on": []any{"build"},
						"output_schema": map[string]any{
							"type": "object",
						},
					},
				},
			},
		},
	}

	plan, err := service.BuildPlan(context.Background(), execCtx)
	require.NoError(t, err)
	require.Len(t, plan.Steps, 2)

	assert.Equal(t, "build", plan.Steps[0].ID)
	assert.Equal(t, "compile", plan.Steps[0].Action)
	assert.Equal(t, "release", plan.Steps[0].Params["profile"])

	// A step without an explicit ID gets a positional one.
	assert.Equal(t, "step-2", plan.Steps[1].ID)
	assert.Equal(t, []string{"build"}, plan.Steps[1].DependsOn)
	assert.NotNil(t, plan.Steps[1].OutputSchema)
}

func TestIntentPlanningService_StepWithoutAction(t *testing.T) {
	service := NewIntentPlanningService()

	execCtx := models.ExecutionContext{
		Intent: models.Intent{
			Name:   "deploy",
			Target: "api",
			Modifiers: map[string]any{
				"steps": []any{
					map[string]any{"id": "broken"},
				},
			},
		},
	}

	_, err := service.BuildPlan(context.Background(), execCtx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no action")
}

func TestAgent_OtherPhasesAreSkipped(t *testing.T) {
	agent := NewAgent(testLogger(), NewIntentPlanningService())
	ctx := context.Background()

	for _, run := range []func(context.Context, models.ExecutionContext) (models.AgentResult, error){
		agent.Act, agent.Observe, agent.Reflect,
	} {
		result, err := run(ctx, models.ExecutionContext{})
		require.NoError(t, err)
		assert.Equal(t, models.ResultStatusSkipped, result.Status)
	}
}
