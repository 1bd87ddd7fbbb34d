// Package reflector provides the reflection agent: it analyzes the full
// phase history, including failures, and never gates other phases.
package reflector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quartetdev/quartet/pkg/models"
	"github.com/quartetdev/quartet/pkg/protocol"
)

// Agent delegates history analysis to a reflection service. It participates
// in REFLECT only and handles every context, so reflection runs even when
// earlier phases failed.
type Agent struct {
	service protocol.ReflectionService
	logger  *slog.Logger
}

func NewAgent(logger *slog.Logger, service protocol.ReflectionService) *Agent {
	return &Agent{
		service: service,
		logger:  logger.With("module", "reflector_agent"),
	}
}

func (a *Agent) AgentType() string {
	return protocol.AgentTypeReflection
}

func (a *Agent) CanHandle(_ models.ExecutionContext) bool {
	return true
}

func (a *Agent) Reflect(ctx context.Context, execCtx models.ExecutionContext) (models.AgentResult, error) {
	insights, recommendations, err := a.service.Analyze(ctx, execCtx)
	if err != nil {
		return models.AgentResult{}, fmt.Errorf("failed to analyze execution history: %w", err)
	}

	a.logger.InfoContext(ctx, "Analyzed execution", "execution_id", execCtx.ID, "insights", len(insights))

	data := map[string]any{
		models.KeyInsights:        insights,
		models.KeyRecommendations: recommendations,
	}

	explanation := fmt.Sprintf("reflected over %d phase results", len(execCtx.Results))

	return models.NewSuccessResult(a.AgentType(), models.PhaseReflect, data, explanation), nil
}

func (a *Agent) Plan(_ context.Context, _ models.ExecutionContext) (models.AgentResult, error) {
	return models.NewSkippedResult(a.AgentType(), models.PhasePlan, "reflector does not plan"), nil
}

func (a *Agent) Act(_ context.Context, _ models.ExecutionContext) (models.AgentResult, error) {
	return models.NewSkippedResult(a.AgentType(), models.PhaseAct, "reflector does not act"), nil
}

func (a *Agent) Observe(_ context.Context, _ models.ExecutionContext) (models.AgentResult, error) {
	return models.NewSkippedResult(a.AgentType(), models.PhaseObserve, "reflector does not observe"), nil
}
