// Package events defines event types and structures for execution lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/quartetdev/quartet/pkg/models"
)

type EventType string

// Topic carries all execution lifecycle events.
const Topic = "quartet.executions"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionCancelledEvent EventType = "execution.cancelled"

	PhaseStartedEvent   EventType = "execution.phase.started"
	PhaseCompletedEvent EventType = "execution.phase.completed"
)

type Event interface {
	GetType() EventType
}

type BaseEvent struct {
	ID          string         `json:"id"`
	Type        EventType      `json:"type"`
	Timestamp   time.Time      `json:"timestamp"`
	ExecutionID string         `json:"execution_id"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, executionID string) BaseEvent {
	return BaseEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		Timestamp:   time.Now(),
		ExecutionID: executionID,
	}
}

type ExecutionStarted struct {
	BaseEvent

	Intent    models.Intent `json:"intent"`
	UserID    string        `json:"user_id"`
	ProjectID string        `json:"project_id"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	OverallStatus models.ResultStatus `json:"overall_status"`
	DurationMs    int64               `json:"duration_ms"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	Error string `json:"error"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type ExecutionCancelled struct {
	BaseEvent
}

func (e ExecutionCancelled) GetType() EventType {
	return ExecutionCancelledEvent
}

type PhaseStarted struct {
	BaseEvent

	Phase     models.Phase `json:"phase"`
	AgentType string       `json:"agent_type"`
}

func (e PhaseStarted) GetType() EventType {
	return PhaseStartedEvent
}

type PhaseCompleted struct {
	BaseEvent

	Phase  models.Phase        `json:"phase"`
	Status models.ResultStatus `json:"status"`
}

func (e PhaseCompleted) GetType() EventType {
	return PhaseCompletedEvent
}
