package models

import "time"

// ExecutionTrace is the durable audit record of one execution: the terminal
// result plus the identifiers it ran under.
type ExecutionTrace struct {
	Result    ExecutionResult `json:"result"`
	Intent    Intent          `json:"intent"`
	UserID    string          `json:"user_id"`
	ProjectID string          `json:"project_id"`
	CreatedAt time.Time       `json:"created_at"`
}
