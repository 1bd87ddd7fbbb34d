// Package validator provides the validation agent: it assesses the outcomes
// the ACT phase produced and grades the execution by finding severity.
package validator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quartetdev/quartet/pkg/models"
	"github.com/quartetdev/quartet/pkg/protocol"
)

// Agent delegates outcome assessment to a validation service. Findings of
// severity error or critical fail the OBSERVE phase; warnings make it
// partial. It participates in OBSERVE only.
type Agent struct {
	service protocol.ValidationService
	logger  *slog.Logger
}

func NewAgent(logger *slog.Logger, service protocol.ValidationService) *Agent {
	return &Agent{
		service: service,
		logger:  logger.With("module", "validator_agent"),
	}
}

func (a *Agent) AgentType() string {
	return protocol.AgentTypeValidator
}

func (a *Agent) CanHandle(execCtx models.ExecutionContext) bool {
	_, ok := models.StepOutcomesFromContext(execCtx)

	return ok
}

func (a *Agent) Observe(ctx context.Context, execCtx models.ExecutionContext) (models.AgentResult, error) {
	outcomes, ok := models.StepOutcomesFromContext(execCtx)
	if !ok {
		return models.AgentResult{}, fmt.Errorf("no step outcomes available for execution %s", execCtx.ID)
	}

	findings, err := a.service.Assess(ctx, execCtx, outcomes)
	if err != nil {
		return models.AgentResult{}, fmt.Errorf("failed to assess outcomes: %w", err)
	}

	status := models.StatusForFindings(findings)
	a.logger.InfoContext(ctx, "Assessed outcomes", "execution_id", execCtx.ID, "findings", len(findings), "status", status)

	data := map[string]any{
		models.KeyFindings: findings,
	}

	explanation := fmt.Sprintf("%d findings over %d step outcomes", len(findings), len(outcomes))

	result := models.AgentResult{}

	switch status {
	case models.ResultStatusFailure:
		result = models.NewFailureResult(a.AgentType(), models.PhaseObserve, worstFindingMessage(findings), explanation)
		result.Data = data
	case models.ResultStatusPartial:
		result = models.NewPartialResult(a.AgentType(), models.PhaseObserve, data, explanation)
	default:
		result = models.NewSuccessResult(a.AgentType(), models.PhaseObserve, data, explanation)
	}

	return result, nil
}

func worstFindingMessage(findings []models.Finding) string {
	for _, finding := range findings {
		if finding.Severity == models.SeverityCritical {
			return finding.Message
		}
	}

	for _, finding := range findings {
		if finding.Severity == models.SeverityError {
			return finding.Message
		}
	}

	return "validation failed"
}

func (a *Agent) Plan(_ context.Context, _ models.ExecutionContext) (models.AgentResult, error) {
	return models.NewSkippedResult(a.AgentType(), models.PhasePlan, "validator does not plan"), nil
}

func (a *Agent) Act(_ context.Context, _ models.ExecutionContext) (models.AgentResult, error) {
	return models.NewSkippedResult(a.AgentType(), models.PhaseAct, "validator does not act"), nil
}

func (a *Agent) Reflect(_ context.Context, _ models.ExecutionContext) (models.AgentResult, error) {
	return models.NewSkippedResult(a.AgentType(), models.PhaseReflect, "validator does not reflect"), nil
}
