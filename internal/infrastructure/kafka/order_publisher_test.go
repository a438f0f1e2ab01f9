package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/produccion-api/internal/application/orders"
)

type fakeWriter struct {
	msgs     []kafka.Message
	deadline time.Time
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.deadline, _ = ctx.Deadline()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func sampleEvent() orders.OrderEvent {
	return orders.OrderEvent{
		Type:       "order.status_changed",
		OrderID:    "MO-20260309-0007",
		Kind:       "MO",
		FromStatus: "gm_approved",
		ToStatus:   "rm_allocated",
		ChangedBy:  "planner-1",
		ChangedAt:  time.Date(2026, 3, 9, 15, 4, 5, 0, time.UTC),
	}
}

func TestPublishOrderEvent_ClaveCabeceraYCuerpo(t *testing.T) {
	w := &fakeWriter{}
	p := &OrderPublisher{writer: w}
	ev := sampleEvent()

	start := time.Now()
	require.NoError(t, p.PublishOrderEvent(context.Background(), ev))
	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]

	assert.Equal(t, []byte(ev.OrderID), msg.Key)
	assert.True(t, msg.Time.Equal(ev.ChangedAt))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event-type", msg.Headers[0].Key)
	assert.Equal(t, []byte(ev.Type), msg.Headers[0].Value)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "MO-20260309-0007", body["order_id"])
	assert.Equal(t, "gm_approved", body["from_status"])
	assert.Equal(t, "rm_allocated", body["to_status"])
	assert.Equal(t, "2026-03-09T15:04:05Z", body["changed_at"])
	assert.NotContains(t, body, "notes")

	assert.False(t, w.deadline.IsZero())
	assert.WithinDuration(t, start.Add(writeTimeout), w.deadline, time.Second)
}

func TestPublishOrderEvent_MismaOrdenMismaClave(t *testing.T) {
	w := &fakeWriter{}
	p := &OrderPublisher{writer: w}
	first := sampleEvent()
	second := sampleEvent()
	second.Type = "order.allocations_swapped"
	second.Notes = "cede reservas a MO-20260309-0009"

	require.NoError(t, p.PublishOrderEvent(context.Background(), first))
	require.NoError(t, p.PublishOrderEvent(context.Background(), second))
	require.Len(t, w.msgs, 2)
	assert.Equal(t, w.msgs[0].Key, w.msgs[1].Key)
	assert.Equal(t, []byte("order.allocations_swapped"), w.msgs[1].Headers[0].Value)
}

func TestPublishOrderEvent_ErrorDelBroker(t *testing.T) {
	boom := errors.New("leader not available")
	p := &OrderPublisher{writer: &fakeWriter{err: boom}}

	err := p.PublishOrderEvent(context.Background(), sampleEvent())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "write order event to kafka")
}

func TestNewOrderPublisher_ConfiguraElProductor(t *testing.T) {
	p := NewOrderPublisher([]string{"localhost:9092"}, "orders")
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "orders", w.Topic)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
	assert.Equal(t, kafka.RequireOne, w.RequiredAcks)
	require.NoError(t, p.Close())
}
