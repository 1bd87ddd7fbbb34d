package reflector

import (
	"context"
	"fmt"

	"github.com/quartetdev/quartet/pkg/models"
)

// HistoryReflectionService derives insights from the phase history itself:
// which phases failed, which were gated away, and how the steps fared. Real
// deployments substitute an inference-backed service.
type HistoryReflectionService struct{}

func NewHistoryReflectionService() *HistoryReflectionService {
	return &HistoryReflectionService{}
}

func (s *HistoryReflectionService) Analyze(_ context.Context, execCtx models.ExecutionContext) ([]string, []string, error) {
	insights := make([]string, 0, len(execCtx.Results))
	recommendations := make([]string, 0, 2)

	seen := make(map[models.Phase]bool, len(execCtx.Results))

	for _, result := range execCtx.Results {
		seen[result.Phase] = true

		switch result.Status {
		case models.ResultStatusFailure:
			insights = append(insights, fmt.Sprintf("%s phase failed: %s", result.Phase, result.Error))
			recommendations = append(recommendations, fmt.Sprintf("retry after addressing the %s failure", result.Phase))
		case models.ResultStatusPartial:
			insights = append(insights, fmt.Sprintf("%s phase completed with reservations: %s", result.Phase, result.Explanation))
		case models.ResultStatusSuccess:
			insights = append(insights, fmt.Sprintf("%s phase succeeded: %s", result.Phase, result.Explanation))
		}
	}

	for _, phase := range []models.Phase{models.PhasePlan, models.PhaseAct, models.PhaseObserve} {
		if !seen[phase] {
			insights = append(insights, fmt.Sprintf("%s phase did not run", phase))
		}
	}

	if outcomes, ok := models.StepOutcomesFromContext(execCtx); ok {
		retried := 0

		for _, outcome := range outcomes {
			if outcome.Attempts > 1 {
				retried++
			}
		}

		if retried > 0 {
			insights = append(insights, fmt.Sprintf("%d of %d steps needed retries", retried, len(outcomes)))
			recommendations = append(recommendations, "investigate flaky steps before the next run")
		}
	}

	return insights, recommendations, nil
}
