// Package web provides the HTTP control plane for submitting and tracking executions.
package web

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/quartetdev/quartet/pkg/orchestrator"
	"github.com/quartetdev/quartet/pkg/persistence"
	"github.com/quartetdev/quartet/pkg/protocol"
	"github.com/quartetdev/quartet/pkg/runner"
)

const defaultTraceLimit = 20

type APIHandlers struct {
	orchestrator *orchestrator.Orchestrator
	runner       *runner.Runner
	persistence  persistence.Persistence
	validator    *validator.Validate
}

func NewAPIHandlers(orch *orchestrator.Orchestrator, run *runner.Runner, store persistence.Persistence) *APIHandlers {
	return &APIHandlers{
		orchestrator: orch,
		runner:       run,
		persistence:  store,
		validator:    validator.New(),
	}
}

// Register mounts all routes on the app.
func (h *APIHandlers) Register(app *fiber.App) {
	app.Post("/executions", h.Execute)
	app.Post("/executions/async", h.ExecuteAsync)
	app.Get("/executions", h.ListTraces)
	app.Get("/executions/:id", h.GetTrace)
	app.Get("/executions/:id/status", h.GetExecutionStatus)
	app.Delete("/executions/:id", h.CancelExecution)
	app.Get("/agents", h.ListAgents)
	app.Get("/health", h.HealthCheck)
}

// Execute runs an execution synchronously and returns its full result.
func (h *APIHandlers) Execute(c fiber.Ctx) error {
	req, err := h.parseExecutionRequest(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	result := h.orchestrator.Execute(c.Context(), req.Intent, req.State, req.UserID, req.ProjectID)

	return c.JSON(result)
}

// ExecuteAsync queues an execution and returns its identifier immediately.
func (h *APIHandlers) ExecuteAsync(c fiber.Ctx) error {
	req, err := h.parseExecutionRequest(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	executionID := h.runner.ExecuteAsync(req.Intent, req.State, req.UserID, req.ProjectID, protocol.NoopCallback{})

	return c.Status(fiber.StatusAccepted).JSON(ExecutionAccepted{ExecutionID: executionID})
}

func (h *APIHandlers) parseExecutionRequest(c fiber.Ctx) (*ExecutionRequest, error) {
	req := &ExecutionRequest{}

	if err := c.Bind().JSON(req); err != nil {
		return nil, err
	}

	if err := h.validator.Struct(req); err != nil {
		return nil, err
	}

	return req, nil
}

func (h *APIHandlers) GetExecutionStatus(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	status, ok := h.runner.GetExecutionStatus(id)
	if !ok {
		return notFound(c, "Execution not found")
	}

	return c.JSON(status)
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	if _, ok := h.runner.GetExecutionStatus(id); !ok {
		return notFound(c, "Execution not found")
	}

	cancelled := h.runner.CancelExecution(id)

	return c.JSON(CancellationResponse{ExecutionID: id, Cancelled: cancelled})
}

func (h *APIHandlers) GetTrace(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	trace, err := h.persistence.Traces().TraceByExecutionID(c.Context(), id)
	if err != nil {
		if persistence.IsTraceNotFound(err) {
			return notFound(c, "Execution trace not found")
		}

		return internalError(c, err)
	}

	return c.JSON(trace)
}

func (h *APIHandlers) ListTraces(c fiber.Ctx) error {
	limit := defaultTraceLimit

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			return badRequest(c, "Invalid limit parameter")
		}

		limit = parsed
	}

	traces, err := h.persistence.Traces().RecentTraces(c.Context(), limit)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"traces": traces,
		"count":  len(traces),
	})
}

func (h *APIHandlers) ListAgents(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"agents": h.orchestrator.Registry().Names(),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "unhealthy",
			"message": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"status": "healthy",
	})
}
