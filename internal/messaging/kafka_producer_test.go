package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/andresuchdata/stockcast/internal/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_KeyHeadersAndPayload(t *testing.T) {
	now := time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)
	event := NewStockCriticalEvent("run-1", now)
	event.SKU = "A-1"
	event.MinAmount = 40

	msg, err := message(event.SKU, event.Type, event.ID, event.Timestamp, event)

	require.NoError(t, err)
	assert.Equal(t, []byte("A-1"), msg.Key)
	assert.Equal(t, now, msg.Time)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, EventStockCritical, string(msg.Headers[0].Value))
	assert.Equal(t, event.ID, string(msg.Headers[1].Value))

	var decoded StockCriticalEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, 40, decoded.MinAmount)
	assert.Equal(t, "run-1", decoded.RunID)
}

func TestNewEvents_AssignIDs(t *testing.T) {
	a := NewOrderStatusEvent(7, "A-1", true, "ok", time.Now())
	b := NewOrderStatusEvent(7, "A-1", true, "ok", time.Now())

	_, err := uuid.Parse(a.ID)
	assert.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, EventOrderStatusChanged, a.Type)
}

func TestNew_DisabledIsNoop(t *testing.T) {
	p := New(config.MessagingConfig{Enabled: false, Brokers: []string{"k:9092"}})
	assert.NoError(t, p.PublishStockCritical(context.Background(), &StockCriticalEvent{}))
	assert.NoError(t, p.Close())

	_, isKafka := New(config.MessagingConfig{Enabled: true, Brokers: []string{"k:9092"}, AlertTopic: "a", OrderTopic: "o"}).(*kafkaProducer)
	assert.True(t, isKafka)
}
