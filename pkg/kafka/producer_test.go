package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent_Fields(t *testing.T) {
	type ActionData struct {
		Resource string `json:"resource"`
		Action   string `json:"action"`
	}

	data := ActionData{Resource: "orders", Action: "status_update"}
	event, err := NewEvent("admin.action.recorded", "ord-123", "audit_entry", "admin-console", data)
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID, "EventID should be a non-empty UUID")
	assert.Equal(t, "admin.action.recorded", event.EventType)
	assert.Equal(t, "ord-123", event.AggregateID)
	assert.Equal(t, "audit_entry", event.AggregateType)
	assert.Equal(t, "admin-console", event.Source)
	assert.Equal(t, 1, event.Version)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, 2*time.Second)
	assert.NotNil(t, event.Metadata)

	var roundTripped ActionData
	require.NoError(t, json.Unmarshal(event.Data, &roundTripped))
	assert.Equal(t, data, roundTripped)
}

func TestNewEvent_InvalidData(t *testing.T) {
	// Channels are not serializable to JSON.
	_, err := NewEvent("test.event", "agg-1", "test", "admin-console", make(chan int))
	require.Error(t, err)
}

func TestEvent_Marshal_Unmarshal(t *testing.T) {
	original, err := NewEvent("admin.session.started", "sess-456", "session", "admin-console", map[string]string{"admin": "a-1"})
	require.NoError(t, err)
	original.CorrelationID = "corr-abc"
	original.Metadata["ip"] = "203.0.113.7"

	bytes, err := original.Marshal()
	require.NoError(t, err)

	restored, err := UnmarshalEvent(bytes)
	require.NoError(t, err)

	assert.Equal(t, original.EventID, restored.EventID)
	assert.Equal(t, original.EventType, restored.EventType)
	assert.Equal(t, original.AggregateID, restored.AggregateID)
	assert.Equal(t, original.CorrelationID, restored.CorrelationID)
	assert.Equal(t, original.Metadata, restored.Metadata)
	assert.JSONEq(t, string(original.Data), string(restored.Data))
}

func TestEvent_ChainedBuilders(t *testing.T) {
	event, err := NewEvent("test.event", "agg-1", "test", "admin-console", nil)
	require.NoError(t, err)

	result := event.WithCorrelationID("corr-xyz").WithMetadata("key1", "value1")
	assert.Same(t, event, result, "builders should return the same event for chaining")
	assert.Equal(t, "corr-xyz", event.CorrelationID)
	assert.Equal(t, "value1", event.Metadata["key1"])
}

func TestEvent_WithActor(t *testing.T) {
	event, err := NewEvent("admin.action.recorded", "prod-1", "products", "admin-console", nil)
	require.NoError(t, err)

	event.WithActor("adm-1")
	assert.Equal(t, "adm-1", event.Metadata["admin_id"])

	delete(event.Metadata, "admin_id")
	event.WithActor("")
	assert.NotContains(t, event.Metadata, "admin_id")
}

func TestEvent_WithMetadata_NilMetadataMap(t *testing.T) {
	event := &Event{EventID: "test-id", EventType: "test"}
	event.WithMetadata("key", "value")
	assert.NotNil(t, event.Metadata)
	assert.Equal(t, "value", event.Metadata["key"])
}

func TestEvent_UnmarshalData(t *testing.T) {
	type SessionPayload struct {
		AdminID string `json:"admin_id"`
		Durable bool   `json:"durable"`
	}

	payload := SessionPayload{AdminID: "a-1", Durable: true}
	event, err := NewEvent("admin.session.started", "sess-1", "session", "admin-console", payload)
	require.NoError(t, err)

	var target SessionPayload
	require.NoError(t, event.UnmarshalData(&target))
	assert.Equal(t, payload, target)
}

func TestDefaultProducerConfig(t *testing.T) {
	cfg := DefaultProducerConfig([]string{"localhost:9092"})
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.False(t, cfg.Async)
}
