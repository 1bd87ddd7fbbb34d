package models

import "time"

// ExecutionContext is the accumulating record passed through all phases of one
// execution. Contexts are value types: WithResult copies instead of mutating,
// so an agent holding an older context never observes later history.
type ExecutionContext struct {
	ID        string        `json:"id"`
	Intent    Intent        `json:"intent"`
	State     ProjectState  `json:"state"`
	UserID    string        `json:"user_id"`
	ProjectID string        `json:"project_id"`
	Deadline  time.Time     `json:"deadline"`
	Results   []AgentResult `json:"results"`
}

// WithResult returns a new context with the result appended. The receiver and
// its result history are left untouched.
func (c ExecutionContext) WithResult(result AgentResult) ExecutionContext {
	results := make([]AgentResult, len(c.Results), len(c.Results)+1)
	copy(results, c.Results)

	c.Results = append(results, result)

	return c
}

// LastResultByAgent returns the most recent result produced by the named
// agent type, or false if it has produced none.
func (c ExecutionContext) LastResultByAgent(agentType string) (AgentResult, bool) {
	for i := len(c.Results) - 1; i >= 0; i-- {
		if c.Results[i].AgentType == agentType {
			return c.Results[i], true
		}
	}

	return AgentResult{}, false
}

// LastResultByPhase returns the most recent result recorded for the phase, or
// false if the phase has not produced one.
func (c ExecutionContext) LastResultByPhase(phase Phase) (AgentResult, bool) {
	for i := len(c.Results) - 1; i >= 0; i-- {
		if c.Results[i].Phase == phase {
			return c.Results[i], true
		}
	}

	return AgentResult{}, false
}

// DataValue looks up a payload key across the accumulated results, newest
// first. Later phases read values earlier phases published under the same key.
func (c ExecutionContext) DataValue(key string) (any, bool) {
	for i := len(c.Results) - 1; i >= 0; i-- {
		if value, ok := c.Results[i].Data[key]; ok {
			return value, true
		}
	}

	return nil, false
}

// PastDeadline reports whether the context deadline has elapsed at the given
// instant. The kernel only logs this; enforcement is a wrapper concern.
func (c ExecutionContext) PastDeadline(now time.Time) bool {
	return !c.Deadline.IsZero() && now.After(c.Deadline)
}
