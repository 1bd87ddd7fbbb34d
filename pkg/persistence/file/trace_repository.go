package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/quartetdev/quartet/pkg/models"
	"github.com/quartetdev/quartet/pkg/persistence"
)

// TraceRepository handles execution trace file operations.
type TraceRepository struct {
	root string
}

func NewTraceRepository(root string) *TraceRepository {
	return &TraceRepository{root: root}
}

// validateExecutionID validates that the execution ID is safe for file operations.
func (tr *TraceRepository) validateExecutionID(executionID string) error {
	if executionID == "" {
		return errors.New("execution ID cannot be empty")
	}

	if strings.Contains(executionID, "..") || strings.Contains(executionID, "/") || strings.Contains(executionID, "\\") {
		return errors.New("execution ID contains invalid characters")
	}

	return nil
}

func (tr *TraceRepository) tracesDir() string {
	return filepath.Join(tr.root, "traces")
}

// SaveTrace writes the trace as a JSON file named by execution ID.
func (tr *TraceRepository) SaveTrace(_ context.Context, trace *models.ExecutionTrace) error {
	executionID := trace.Result.ExecutionID

	if err := tr.validateExecutionID(executionID); err != nil {
		return persistence.NewTraceError("SaveTrace", executionID, err)
	}

	if err := os.MkdirAll(tr.tracesDir(), 0750); err != nil {
		return persistence.NewTraceError("SaveTrace", executionID, fmt.Errorf("failed to create traces directory: %w", err))
	}

	data, err := json.Marshal(trace)
	if err != nil {
		return persistence.NewTraceError("SaveTrace", executionID, fmt.Errorf("failed to marshal trace: %w", err))
	}

	filePath := filepath.Join(tr.tracesDir(), executionID+".json")
	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return persistence.NewTraceError("SaveTrace", executionID, fmt.Errorf("failed to write trace: %w", err))
	}

	return nil
}

// TraceByExecutionID loads a single trace.
func (tr *TraceRepository) TraceByExecutionID(_ context.Context, executionID string) (*models.ExecutionTrace, error) {
	if err := tr.validateExecutionID(executionID); err != nil {
		return nil, persistence.NewTraceError("TraceByExecutionID", executionID, err)
	}

	filePath := filepath.Join(tr.tracesDir(), executionID+".json")

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewTraceError("TraceByExecutionID", executionID, persistence.ErrTraceNotFound)
		}

		return nil, persistence.NewTraceError("TraceByExecutionID", executionID, err)
	}

	var trace models.ExecutionTrace
	if err := json.Unmarshal(data, &trace); err != nil {
		return nil, persistence.NewTraceError("TraceByExecutionID", executionID, fmt.Errorf("failed to unmarshal trace: %w", err))
	}

	return &trace, nil
}

// RecentTraces returns up to limit traces ordered newest first.
func (tr *TraceRepository) RecentTraces(ctx context.Context, limit int) ([]*models.ExecutionTrace, error) {
	entries, err := os.ReadDir(tr.tracesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.ExecutionTrace{}, nil
		}

		return nil, fmt.Errorf("failed to read traces directory: %w", err)
	}

	traces := make([]*models.ExecutionTrace, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		executionID := strings.TrimSuffix(entry.Name(), ".json")

		trace, err := tr.TraceByExecutionID(ctx, executionID)
		if err != nil {
			continue
		}

		traces = append(traces, trace)
	}

	sort.Slice(traces, func(i, j int) bool {
		return traces[i].CreatedAt.After(traces[j].CreatedAt)
	})

	if limit > 0 && len(traces) > limit {
		traces = traces[:limit]
	}

	return traces, nil
}
