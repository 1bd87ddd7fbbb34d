package models

import (
	"fmt"
	"time"
)

// ExecutionResult is the terminal record of one execution. Built exactly once
// when the pipeline finishes and never mutated afterwards.
type ExecutionResult struct {
	ExecutionID   string        `json:"execution_id"`
	OverallStatus ResultStatus  `json:"overall_status"`
	AgentResults  []AgentResult `json:"agent_results"`
	Summary       string        `json:"summary"`
	StartedAt     time.Time     `json:"started_at"`
	CompletedAt   time.Time     `json:"completed_at"`
	DurationMs    int64         `json:"duration_ms"`
}

// DeriveOverallStatus folds agent results into an overall status: failure if
// any result failed, else partial if any was partial, else success.
func DeriveOverallStatus(results []AgentResult) ResultStatus {
	status := ResultStatusSuccess

	for _, result := range results {
		switch result.Status {
		case ResultStatusFailure:
			return ResultStatusFailure
		case ResultStatusPartial:
			status = ResultStatusPartial
		}
	}

	return status
}

// NewExecutionResult assembles the terminal record from the accumulated
// results of one run.
func NewExecutionResult(executionID string, results []AgentResult, startedAt, completedAt time.Time) ExecutionResult {
	status := DeriveOverallStatus(results)

	return ExecutionResult{
		ExecutionID:   executionID,
		OverallStatus: status,
		AgentResults:  results,
		Summary:       buildSummary(status, results),
		StartedAt:     startedAt,
		CompletedAt:   completedAt,
		DurationMs:    completedAt.Sub(startedAt).Milliseconds(),
	}
}

func buildSummary(status ResultStatus, results []AgentResult) string {
	failed := 0

	for _, result := range results {
		if result.Status == ResultStatusFailure {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Sprintf("execution %s: %d of %d phases failed", status, failed, len(results))
	}

	return fmt.Sprintf("execution %s: %d phases recorded", status, len(results))
}
