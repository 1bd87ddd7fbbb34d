package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quartetdev/quartet/pkg/models"
	"github.com/quartetdev/quartet/pkg/persistence"
)

// TraceRepository stores execution traces in the execution_traces table.
type TraceRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewTraceRepository(db *sql.DB, logger *slog.Logger) *TraceRepository {
	return &TraceRepository{
		db:     db,
		logger: logger.With("module", "trace_repository"),
	}
}

// SaveTrace upserts the trace keyed by execution ID.
func (tr *TraceRepository) SaveTrace(ctx context.Context, trace *models.ExecutionTrace) error {
	executionID := trace.Result.ExecutionID

	intentJSON, err := json.Marshal(trace.Intent)
	if err != nil {
		return persistence.NewTraceError("SaveTrace", executionID, fmt.Errorf("failed to marshal intent: %w", err))
	}

	resultsJSON, err := json.Marshal(trace.Result.AgentResults)
	if err != nil {
		return persistence.NewTraceError("SaveTrace", executionID, fmt.Errorf("failed to marshal agent results: %w", err))
	}

	query := `
		INSERT INTO execution_traces (
			execution_id, overall_status, user_id, project_id, intent,
			agent_results, summary, started_at, completed_at, duration_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (execution_id) DO UPDATE SET
			overall_status = EXCLUDED.overall_status,
			agent_results = EXCLUDED.agent_results,
			summary = EXCLUDED.summary,
			completed_at = EXCLUDED.completed_at,
			duration_ms = EXCLUDED.duration_ms
	`

	_, err = tr.db.ExecContext(ctx, query,
		executionID,
		string(trace.Result.OverallStatus),
		trace.UserID,
		trace.ProjectID,
		intentJSON,
		resultsJSON,
		trace.Result.Summary,
		trace.Result.StartedAt,
		trace.Result.CompletedAt,
		trace.Result.DurationMs,
		trace.CreatedAt,
	)
	if err != nil {
		return persistence.NewTraceError("SaveTrace", executionID, err)
	}

	return nil
}

// TraceByExecutionID loads a single trace.
func (tr *TraceRepository) TraceByExecutionID(ctx context.Context, executionID string) (*models.ExecutionTrace, error) {
	query := `
		SELECT execution_id, overall_status, user_id, project_id, intent,
			agent_results, summary, started_at, completed_at, duration_ms, created_at
		FROM execution_traces
		WHERE execution_id = $1
	`

	trace, err := tr.scanTrace(tr.db.QueryRowContext(ctx, query, executionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewTraceError("TraceByExecutionID", executionID, persistence.ErrTraceNotFound)
		}

		return nil, persistence.NewTraceError("TraceByExecutionID", executionID, err)
	}

	return trace, nil
}

// RecentTraces returns up to limit traces ordered newest first.
func (tr *TraceRepository) RecentTraces(ctx context.Context, limit int) ([]*models.ExecutionTrace, error) {
	query := `
		SELECT execution_id, overall_status, user_id, project_id, intent,
			agent_results, summary, started_at, completed_at, duration_ms, created_at
		FROM execution_traces
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := tr.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query traces: %w", err)
	}
	defer func() { _ = rows.Close() }()

	traces := make([]*models.ExecutionTrace, 0, limit)

	for rows.Next() {
		trace, err := tr.scanTrace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trace row: %w", err)
		}

		traces = append(traces, trace)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trace rows: %w", err)
	}

	return traces, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (tr *TraceRepository) scanTrace(row rowScanner) (*models.ExecutionTrace, error) {
	var (
		trace       models.ExecutionTrace
		status      string
		intentJSON  []byte
		resultsJSON []byte
	)

	err := row.Scan(
		&trace.Result.ExecutionID,
		&status,
		&trace.UserID,
		&trace.ProjectID,
		&intentJSON,
		&resultsJSON,
		&trace.Result.Summary,
		&trace.Result.StartedAt,
		&trace.Result.CompletedAt,
		&trace.Result.DurationMs,
		&trace.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	trace.Result.OverallStatus = models.ResultStatus(status)

	if err := json.Unmarshal(intentJSON, &trace.Intent); err != nil {
		return nil, fmt.Errorf("failed to unmarshal intent: %w", err)
	}

	if err := json.Unmarshal(resultsJSON, &trace.Result.AgentResults); err != nil {
		return nil, fmt.Errorf("failed to unmarshal agent results: %w", err)
	}

	return &trace, nil
}
