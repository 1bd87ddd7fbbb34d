package web

import "github.com/quartetdev/quartet/pkg/models"

// ExecutionRequest is the submission body for both the blocking and async
// execution endpoints.
type ExecutionRequest struct {
	Intent    models.Intent       `json:"intent"     validate:"required"`
	State     models.ProjectState `json:"state"`
	UserID    string              `json:"user_id"    validate:"required"`
	ProjectID string              `json:"project_id" validate:"required"`
}

// ExecutionAccepted is the async submission response.
type ExecutionAccepted struct {
	ExecutionID string `json:"execution_id"`
}

// CancellationResponse reports the outcome of a cancel request.
type CancellationResponse struct {
	ExecutionID string `json:"execution_id"`
	Cancelled   bool   `json:"cancelled"`
}
