package executor

import (
	"context"

	"github.com/quartetdev/quartet/pkg/models"
)

// StepRunnerFunc adapts a function to the protocol.StepRunner interface.
type StepRunnerFunc func(ctx context.Context, step models.PlanStep, inputs map[string]any) (map[string]any, error)

func (f StepRunnerFunc) RunStep(ctx context.Context, step models.PlanStep, inputs map[string]any) (map[string]any, error) {
	return f(ctx, step, inputs)
}

// EchoStepRunner is the no-op step runner: it reports the step's action and
// params as its output. Deployments substitute a runner that talks to the
// real execution backends.
func EchoStepRunner() StepRunnerFunc {
	return func(_ context.Context, step models.PlanStep, _ map[string]any) (map[string]any, error) {
		return map[string]any{
			"action": step.Action,
			"params": step.Params,
		}, nil
	}
}
