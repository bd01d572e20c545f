package bus

import (
	"time"

	"github.com/google/uuid"
)

// Well-known event types emitted by the orchestration runtime.
const (
	TypeAgentStarted      = "agent.started"
	TypeAgentCompleted    = "agent.completed"
	TypeAgentRegistered   = "agent.registered"
	TypeTaskStarted       = "task.started"
	TypeTaskCompleted     = "task.completed"
	TypeTaskFailed        = "task.failed"
	TypeWorkflowStarted   = "workflow.started"
	TypeWorkflowCompleted = "workflow.completed"
	TypeWorkflowFailed    = "workflow.failed"
)

// Wildcard matches every event type when used as a subscription filter.
const Wildcard = "*"

// Event is an immutable fact published to the bus. After publication it
// must not be mutated; handlers receive it by value.
type Event struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`

	// Type is the dotted event type, e.g. "task.completed".
	Type string `json:"type"`

	// Source identifies the producer, e.g. "workflow-engine".
	Source string `json:"source"`

	// Data is the free-form event payload.
	Data map[string]interface{} `json:"data"`

	// Timestamp is the UTC instant the event was created.
	Timestamp time.Time `json:"timestamp"`

	// CorrelationID ties the event to the execution or task that caused it.
	CorrelationID string `json:"correlation_id,omitempty"`

	// Metadata carries additional string key-value context.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewEvent creates an event with a generated id and UTC timestamp.
func NewEvent(eventType, source string, data map[string]interface{}) Event {
	if data == nil {
		data = make(map[string]interface{})
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    source,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// WithCorrelation returns a copy of the event carrying the correlation id.
func (e Event) WithCorrelation(id string) Event {
	e.CorrelationID = id
	return e
}

// WithMetadata returns a copy of the event with a metadata entry added.
func (e Event) WithMetadata(key, value string) Event {
	md := make(map[string]string, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		md[k] = v
	}
	md[key] = value
	e.Metadata = md
	return e
}
