package persistence

import (
	"errors"
	"fmt"
)

// ErrTraceNotFound indicates no trace exists for the given execution identifier.
var ErrTraceNotFound = errors.New("execution trace not found")

// TraceError wraps trace-related errors with operation context.
type TraceError struct {
	Op          string // Operation being performed (e.g., "SaveTrace", "TraceByExecutionID")
	ExecutionID string
	Err         error
}

func (e *TraceError) Error() string {
	return fmt.Sprintf("%s operation failed for execution %s: %v", e.Op, e.ExecutionID, e.Err)
}

func (e *TraceError) Unwrap() error {
	return e.Err
}

func (e *TraceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewTraceError creates a new trace error with context.
func NewTraceError(op, executionID string, err error) *TraceError {
	return &TraceError{
		Op:          op,
		ExecutionID: executionID,
		Err:         err,
	}
}

// IsTraceNotFound checks if an error indicates a trace was not found.
func IsTraceNotFound(err error) bool {
	return errors.Is(err, ErrTraceNotFound)
}
