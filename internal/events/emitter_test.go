package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	t.Parallel()

	payload := map[string]string{"taskId": "abc"}
	event, err := NewEvent(EventTaskCreated, payload)
	require.NoError(t, err)

	assert.Equal(t, EventTaskCreated, event.Type)
	assert.False(t, event.OccurredAt.IsZero())

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(event.Payload, &decoded))
	assert.Equal(t, "abc", decoded["taskId"])
}

func TestNewEventUnencodablePayload(t *testing.T) {
	t.Parallel()

	_, err := NewEvent(EventTaskCreated, make(chan int))
	assert.Error(t, err)
}

func TestInMemoryEventEmitter(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEventEmitter(nil)

	var first, second []*Event
	emitter.RegisterHandler(EventHandlerFunc(func(_ context.Context, e *Event) {
		first = append(first, e)
	}))
	emitter.RegisterHandler(EventHandlerFunc(func(_ context.Context, e *Event) {
		second = append(second, e)
	}))

	event, err := NewEvent(EventTaskStatusUpdated, map[string]string{"status": "DONE"})
	require.NoError(t, err)

	emitter.EmitEvent(context.Background(), event)

	// Every registered handler sees every event
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, EventTaskStatusUpdated, first[0].Type)
	assert.Same(t, first[0], second[0])
}

func TestEmitWithoutHandlers(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEventEmitter(nil)
	event, err := NewEvent(EventTaskSubtaskAdded, nil)
	require.NoError(t, err)

	// Emitting with no handlers must not panic
	emitter.EmitEvent(context.Background(), event)
}
