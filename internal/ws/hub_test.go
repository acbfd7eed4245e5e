package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpetrie/taskboard-api/internal/events"
)

// newHubClient registers a bare client with a running hub. The client
// has no underlying connection; tests read its send channel directly.
func newHubClient(t *testing.T, hub *Hub) *Client {
	t.Helper()
	client := &Client{
		hub:  hub,
		send: make(chan []byte, sendBufferSize),
	}
	hub.register <- client
	return client
}

func receiveOrFail(t *testing.T, client *Client) []byte {
	t.Helper()
	select {
	case message := <-client.send:
		return message
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
		return nil
	}
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	first := newHubClient(t, hub)
	second := newHubClient(t, hub)

	hub.Broadcast([]byte("hello"))

	assert.Equal(t, []byte("hello"), receiveOrFail(t, first))
	assert.Equal(t, []byte("hello"), receiveOrFail(t, second))
}

func TestHubUnregisterStopsDelivery(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := newHubClient(t, hub)
	remaining := newHubClient(t, hub)

	hub.unregister <- client

	// The unregistered client's channel is closed by the hub
	select {
	case _, open := <-client.send:
		assert.False(t, open, "expected closed send channel")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}

	hub.Broadcast([]byte("still here"))
	assert.Equal(t, []byte("still here"), receiveOrFail(t, remaining))
}

func TestHubDropsSlowClient(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	slow := &Client{hub: hub, send: make(chan []byte)} // unbuffered, never read
	hub.register <- slow
	healthy := newHubClient(t, hub)

	hub.Broadcast([]byte("first"))
	assert.Equal(t, []byte("first"), receiveOrFail(t, healthy))

	// The slow client was dropped and its channel closed
	select {
	case _, open := <-slow.send:
		assert.False(t, open, "expected dropped client's channel to be closed")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for slow client drop")
	}

	// Later broadcasts still reach the healthy client
	hub.Broadcast([]byte("second"))
	assert.Equal(t, []byte("second"), receiveOrFail(t, healthy))
}

func TestHubHandleEvent(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := newHubClient(t, hub)

	event, err := events.NewEvent(events.EventTaskCreated, map[string]string{"title": "New task"})
	require.NoError(t, err)

	hub.HandleEvent(context.Background(), event)

	raw := receiveOrFail(t, client)
	var decoded events.Event
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, events.EventTaskCreated, decoded.Type)
}

func TestHubShutdownClosesClients(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	client := newHubClient(t, hub)
	cancel()

	select {
	case _, open := <-client.send:
		assert.False(t, open, "expected send channel closed on shutdown")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for shutdown close")
	}
}
