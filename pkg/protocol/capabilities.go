package protocol

import (
	"context"

	"github.com/quartetdev/quartet/pkg/models"
)

// PlanningService produces a plan with risk and duration estimates for an
// intent. Implemented outside the kernel (LLM inference, templates, etc.).
type PlanningService interface {
	BuildPlan(ctx context.Context, execCtx models.ExecutionContext) (*models.Plan, error)
}

// StepRunner performs the side-effecting work of a single plan step. The
// inputs map carries the outputs of the steps it depends on, keyed by step ID.
type StepRunner interface {
	RunStep(ctx context.Context, step models.PlanStep, inputs map[string]any) (map[string]any, error)
}

// ValidationService assesses step outcomes and returns findings. Severity
// drives the observe phase status.
type ValidationService interface {
	Assess(ctx context.Context, execCtx models.ExecutionContext, outcomes []models.StepOutcome) ([]models.Finding, error)
}

// ReflectionService analyzes the full execution history and returns insights
// and recommendations. It never gates other phases.
type ReflectionService interface {
	Analyze(ctx context.Context, execCtx models.ExecutionContext) (insights []string, recommendations []string, err error)
}
