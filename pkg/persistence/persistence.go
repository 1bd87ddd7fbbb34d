// Package persistence provides the data storage abstraction layer for execution traces.
package persistence

import (
	"context"

	"github.com/quartetdev/quartet/pkg/models"
)

// TraceRepository stores completed execution traces. Save failures are
// logged and swallowed by the orchestrator; they never alter the returned
// execution result.
type TraceRepository interface {
	SaveTrace(ctx context.Context, trace *models.ExecutionTrace) error
	TraceByExecutionID(ctx context.Context, executionID string) (*models.ExecutionTrace, error)
	RecentTraces(ctx context.Context, limit int) ([]*models.ExecutionTrace, error)
}

type Persistence interface {
	Traces() TraceRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
