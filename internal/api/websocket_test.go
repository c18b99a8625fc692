package api

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discoveryPayload(entityID uuid.UUID) map[string]interface{} {
	return map[string]interface{}{
		"entity_type": "movie",
		"entity_id":   entityID,
		"directory":   "/library/Movie (2024)",
	}
}

func TestEventHubBroadcast(t *testing.T) {
	hub := NewEventHub()
	client := &eventClient{send: make(chan []byte, 4)}
	hub.add(client)

	hub.Broadcast(EventAssetsReplaced, map[string]interface{}{"selected": 1})

	require.Len(t, client.send, 1)
	var env eventEnvelope
	require.NoError(t, json.Unmarshal(<-client.send, &env))
	assert.Equal(t, EventAssetsReplaced, env.Event)
}

func TestEventHubReplaysInFlightScans(t *testing.T) {
	hub := NewEventHub()
	entityID := uuid.New()

	hub.Broadcast(EventDiscoveryStart, discoveryPayload(entityID))

	// A client connecting mid-scan receives the pending start event.
	late := &eventClient{send: make(chan []byte, 4)}
	hub.add(late)
	hub.replayInFlight(late)

	require.Len(t, late.send, 1)
	var env eventEnvelope
	require.NoError(t, json.Unmarshal(<-late.send, &env))
	assert.Equal(t, EventDiscoveryStart, env.Event)

	// The terminal event clears the scan; the next client sees nothing.
	hub.Broadcast(EventDiscoveryComplete, discoveryPayload(entityID))
	after := &eventClient{send: make(chan []byte, 4)}
	hub.add(after)
	hub.replayInFlight(after)
	assert.Empty(t, after.send)
}

func TestEventHubFailedScanClears(t *testing.T) {
	hub := NewEventHub()
	entityID := uuid.New()

	hub.Broadcast(EventDiscoveryStart, discoveryPayload(entityID))
	hub.Broadcast(EventDiscoveryFailed, map[string]interface{}{
		"entity_type": "movie", "entity_id": entityID, "error": "directory vanished",
	})

	client := &eventClient{send: make(chan []byte, 4)}
	hub.add(client)
	hub.replayInFlight(client)
	assert.Empty(t, client.send)
}

func TestEventHubIgnoresSlowClients(t *testing.T) {
	hub := NewEventHub()
	full := &eventClient{send: make(chan []byte)} // unbuffered, never read
	hub.add(full)

	// Must not block.
	hub.Broadcast(EventAssetsReset, map[string]interface{}{"deleted": 2})
}

func TestEventHubRemoveClosesChannel(t *testing.T) {
	hub := NewEventHub()
	client := &eventClient{send: make(chan []byte, 1)}
	hub.add(client)
	hub.remove(client)

	_, open := <-client.send
	assert.False(t, open)

	// Double remove is harmless.
	hub.remove(client)
}
