// Package events defines event types for extraction run lifecycle
// notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries all run lifecycle events.
const Topic = "neosense.runs"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RunStartedEvent         EventType = "run.started"
	RunPreflightFailedEvent EventType = "run.preflight.failed"
	OperationCompletedEvent EventType = "operation.completed"
	OperationFailedEvent    EventType = "operation.failed"
	RunCompletedEvent       EventType = "run.completed"
	ReportPersistedEvent    EventType = "report.persisted"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`
}

func NewBaseEvent(eventType EventType, runID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		RunID:     runID,
	}
}

type RunStarted struct {
	BaseEvent

	Endpoint string `json:"endpoint"`
}

func (e RunStarted) GetType() EventType {
	return RunStartedEvent
}

type RunPreflightFailed struct {
	BaseEvent

	Attempts int    `json:"attempts"`
	Error    string `json:"error"`
}

func (e RunPreflightFailed) GetType() EventType {
	return RunPreflightFailedEvent
}

type OperationCompleted struct {
	BaseEvent

	Operation string        `json:"operation"`
	Duration  time.Duration `json:"duration"`
}

func (e OperationCompleted) GetType() EventType {
	return OperationCompletedEvent
}

type OperationFailed struct {
	BaseEvent

	Operation string `json:"operation"`
	Attempts  int    `json:"attempts"`
	Error     string `json:"error"`
}

func (e OperationFailed) GetType() EventType {
	return OperationFailedEvent
}

type RunCompleted struct {
	BaseEvent

	Partial          bool          `json:"partial"`
	FailedOperations []string      `json:"failed_operations,omitempty"`
	Duration         time.Duration `json:"duration"`
}

func (e RunCompleted) GetType() EventType {
	return RunCompletedEvent
}

type ReportPersisted struct {
	BaseEvent
}

func (e ReportPersisted) GetType() EventType {
	return ReportPersistedEvent
}
