// Package events provides a minimal in-process publish/subscribe
// mechanism used to fan task mutations out to the notification channel.
// Delivery is best-effort: handler errors are logged, never propagated,
// and never fail the operation that emitted the event.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Event types emitted by the task service.
const (
	EventTaskCreated       = "task.created"
	EventTaskStatusUpdated = "task.status_updated"
	EventTaskSubtaskAdded  = "task.subtask_added"
)

// Event is a typed notification with an opaque JSON payload.
type Event struct {
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// NewEvent creates an event of the given type, encoding payload as JSON.
func NewEvent(eventType string, payload any) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event payload: %w", err)
	}
	return &Event{
		Type:       eventType,
		Payload:    raw,
		OccurredAt: time.Now().UTC(),
	}, nil
}

// EventHandler receives emitted events.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *Event)
}

// EventHandlerFunc adapts a function to the EventHandler interface.
type EventHandlerFunc func(ctx context.Context, event *Event)

// HandleEvent implements EventHandler.
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *Event) {
	f(ctx, event)
}

// EventEmitter publishes events to registered handlers.
type EventEmitter interface {
	RegisterHandler(handler EventHandler)
	EmitEvent(ctx context.Context, event *Event)
}
