package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quartetdev/quartet/pkg/cmd"
	"github.com/quartetdev/quartet/pkg/models"
	"github.com/quartetdev/quartet/pkg/orchestrator"
	"github.com/quartetdev/quartet/pkg/persistence/file"
	"github.com/quartetdev/quartet/pkg/runner"
	"github.com/quartetdev/quartet/pkg/web"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := file.NewPersistence(t.TempDir())
	registry := cmd.NewDefaultRegistry(logger)
	orch := orchestrator.NewOrchestrator(logger, registry, store.Traces(), nil)
	run := runner.NewRunnerWithWorkers(logger, orch, 2)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = run.Shutdown(ctx)
	})

	handlers := web.NewAPIHandlers(orch, run, store)
	app := fiber.New()
	handlers.Register(app)

	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func validRequest() web.ExecutionRequest {
	return web.ExecutionRequest{
		Intent:    models.Intent{Name: "deploy", Target: "api-service"},
		UserID:    "user-1",
		ProjectID: "proj-1",
	}
}

func TestExecute_Success(t *testing.T) {
	app := setupTestApp(t)

	resp := postJSON(t, app, "/executions", validRequest())
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result models.ExecutionResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, models.ResultStatusSuccess, result.OverallStatus)
	assert.Len(t, result.AgentResults, 4)
	assert.NotEmpty(t, result.ExecutionID)
}

func TestExecute_MissingUserID(t *testing.T) {
	app := setupTestApp(t)

	req := validRequest()
	req.UserID = ""

	resp := postJSON(t, app, "/executions", req)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExecuteAsync_Accepted(t *testing.T) {
	app := setupTestApp(t)

	resp := postJSON(t, app, "/executions/async", validRequest())
	defer resp.Body.Close()

	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var accepted web.ExecutionAccepted
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accepted))
	assert.NotEmpty(t, accepted.ExecutionID)

	// The status endpoint answers as soon as the submission is tracked.
	statusReq := httptest.NewRequest(http.MethodGet, "/executions/"+accepted.ExecutionID+"/status", nil)
	statusResp, err := app.Test(statusReq)
	require.NoError(t, err)
	defer statusResp.Body.Close()

	assert.Equal(t, http.StatusOK, statusResp.StatusCode)
}

func TestGetExecutionStatus_NotFound(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/executions/exec-missing1/status", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCancelExecution_NotFound(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest(http.MethodDelete, "/executions/exec-missing1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCancelExecution_CompletedIsNotCancelled(t *testing.T) {
	app := setupTestApp(t)

	// Run synchronously through the async path and wait for completion by
	// polling the status endpoint.
	resp := postJSON(t, app, "/executions/async", validRequest())
	defer resp.Body.Close()

	var accepted web.ExecutionAccepted
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accepted))

	var status models.ExecutionStatus

	require.Eventually(t, func() bool {
		statusReq := httptest.NewRequest(http.MethodGet, "/executions/"+accepted.ExecutionID+"/status", nil)
		statusResp, err := app.Test(statusReq)
		if err != nil {
			return false
		}
		defer statusResp.Body.Close()

		if err := json.NewDecoder(statusResp.Body).Decode(&status); err != nil {
			return false
		}

		return status.State.IsTerminal()
	}, 10*time.Second, 20*time.Millisecond)

	cancelReq := httptest.NewRequest(http.MethodDelete, "/executions/"+accepted.ExecutionID, nil)
	cancelResp, err := app.Test(cancelReq)
	require.NoError(t, err)
	defer cancelResp.Body.Close()

	require.Equal(t, http.StatusOK, cancelResp.StatusCode)

	var cancellation web.CancellationResponse
	require.NoError(t, json.NewDecoder(cancelResp.Body).Decode(&cancellation))
	assert.False(t, cancellation.Cancelled)
}

func TestGetTrace_RoundTrip(t *testing.T) {
	app := setupTestApp(t)

	resp := postJSON(t, app, "/executions", validRequest())
	defer resp.Body.Close()

	var result models.ExecutionResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))

	traceReq := httptest.NewRequest(http.MethodGet, "/executions/"+result.ExecutionID, nil)
	traceResp, err := app.Test(traceReq)
	require.NoError(t, err)
	defer traceResp.Body.Close()

	require.Equal(t, http.StatusOK, traceResp.StatusCode)

	var trace models.ExecutionTrace
	require.NoError(t, json.NewDecoder(traceResp.Body).Decode(&trace))
	assert.Equal(t, result.ExecutionID, trace.Result.ExecutionID)
	assert.Equal(t, "deploy", trace.Intent.Name)
	assert.Equal(t, "user-1", trace.UserID)
}

func TestGetTrace_NotFound(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/executions/exec-missing1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListTraces(t *testing.T) {
	app := setupTestApp(t)

	for i := 0; i < 3; i++ {
		resp := postJSON(t, app, "/executions", validRequest())
		resp.Body.Close()
	}

	listReq := httptest.NewRequest(http.MethodGet, "/executions?limit=2", nil)
	listResp, err := app.Test(listReq)
	require.NoError(t, err)
	defer listResp.Body.Close()

	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var payload struct {
		Traces []models.ExecutionTrace `json:"traces"`
		Count  int                     `json:"count"`
	}

	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&payload))
	assert.Equal(t, 2, payload.Count)
	assert.Len(t, payload.Traces, 2)
}

func TestListTraces_InvalidLimit(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/executions?limit=zero", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListAgents(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/agents", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Agents []string `json:"agents"`
	}

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, []string{"planner", "executor", "validator", "reflection"}, payload.Agents)
}

func TestHealthCheck(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
