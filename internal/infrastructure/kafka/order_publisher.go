package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/produccion-api/internal/application/orders"
)

var _ orders.EventPublisher = (*OrderPublisher)(nil)

// OrderPublisher publica eventos de orden en Kafka. La clave del mensaje es el número de
// orden, así los eventos de una misma orden caen en la misma partición y conservan su orden.
type OrderPublisher struct {
	writer messageWriter
}

// messageWriter parte de *kafka.Writer que usa el publicador.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const writeTimeout = 5 * time.Second

// NewOrderPublisher construye el productor.
func NewOrderPublisher(brokers []string, topic string) *OrderPublisher {
	return &OrderPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Snappy,
	}}
}

func (p *OrderPublisher) PublishOrderEvent(ctx context.Context, event orders.OrderEvent) error {
	msg, err := orderMessage(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write order event to kafka: %w", err)
	}
	return nil
}

func orderMessage(event orders.OrderEvent) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal order event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.OrderID),
		Value: payload,
		Time:  event.ChangedAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}, nil
}

// Close vacía los mensajes pendientes y cierra el productor.
func (p *OrderPublisher) Close() error {
	return p.writer.Close()
}
