package models

import "time"

// Phase is a named stage in the execution pipeline.
type Phase string

const (
	PhasePlan    Phase = "plan"
	PhaseAct     Phase = "act"
	PhaseObserve Phase = "observe"
	PhaseReflect Phase = "reflect"
)

// Phases lists the pipeline stages in execution order.
var Phases = []Phase{PhasePlan, PhaseAct, PhaseObserve, PhaseReflect}

// ResultStatus represents the outcome of a single agent invocation.
type ResultStatus string

const (
	ResultStatusSuccess ResultStatus = "success"
	ResultStatusFailure ResultStatus = "failure"
	ResultStatusPartial ResultStatus = "partial"
	ResultStatusSkipped ResultStatus = "skipped"
)

// AgentResult is the immutable outcome record of one agent invocation in one
// phase. Error is set if and only if Status is failure.
type AgentResult struct {
	AgentType   string         `json:"agent_type"`
	Phase       Phase          `json:"phase"`
	Status      ResultStatus   `json:"status"`
	Data        map[string]any `json:"data,omitempty"`
	Explanation string         `json:"explanation,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// NewSuccessResult builds a success result for the given agent and phase.
func NewSuccessResult(agentType string, phase Phase, data map[string]any, explanation string) AgentResult {
	return AgentResult{
		AgentType:   agentType,
		Phase:       phase,
		Status:      ResultStatusSuccess,
		Data:        data,
		Explanation: explanation,
		CreatedAt:   time.Now(),
	}
}

// NewPartialResult builds a partial result for the given agent and phase.
func NewPartialResult(agentType string, phase Phase, data map[string]any, explanation string) AgentResult {
	return AgentResult{
		AgentType:   agentType,
		Phase:       phase,
		Status:      ResultStatusPartial,
		Data:        data,
		Explanation: explanation,
		CreatedAt:   time.Now(),
	}
}

// NewFailureResult builds a failure result carrying the error message.
func NewFailureResult(agentType string, phase Phase, errorMessage, explanation string) AgentResult {
	return AgentResult{
		AgentType:   agentType,
		Phase:       phase,
		Status:      ResultStatusFailure,
		Explanation: explanation,
		Error:       errorMessage,
		CreatedAt:   time.Now(),
	}
}

// NewSkippedResult builds a skipped result for a phase the agent does not
// participate in.
func NewSkippedResult(agentType string, phase Phase, explanation string) AgentResult {
	return AgentResult{
		AgentType:   agentType,
		Phase:       phase,
		Status:      ResultStatusSkipped,
		Explanation: explanation,
		CreatedAt:   time.Now(),
	}
}
