package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/andresuchdata/stockcast/internal/config"
	"github.com/segmentio/kafka-go"
)

type Publisher interface {
	PublishStockCritical(ctx context.Context, event *StockCriticalEvent) error
	PublishOrderStatus(ctx context.Context, event *OrderStatusEvent) error
	Close() error
}

// New returns a Kafka publisher, or a no-op one when messaging is disabled.
func New(cfg config.MessagingConfig) Publisher {
	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		return NewNoop()
	}
	return NewKafkaProducer(cfg.Brokers, cfg.AlertTopic, cfg.OrderTopic)
}

type kafkaProducer struct {
	alerts *kafka.Writer
	orders *kafka.Writer
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Snappy,
	}
}

func NewKafkaProducer(brokers []string, alertTopic, orderTopic string) Publisher {
	return &kafkaProducer{
		alerts: newWriter(brokers, alertTopic),
		orders: newWriter(brokers, orderTopic),
	}
}

// message keys events by SKU so one product's events stay ordered.
func message(key, eventType, id string, ts time.Time, event interface{}) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  ts,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventType)},
			{Key: "event-id", Value: []byte(id)},
		},
	}, nil
}

func write(ctx context.Context, w *kafka.Writer, msg kafka.Message) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write event to kafka topic %s: %w", w.Topic, err)
	}
	return nil
}

func (p *kafkaProducer) PublishStockCritical(ctx context.Context, event *StockCriticalEvent) error {
	msg, err := message(event.SKU, event.Type, event.ID, event.Timestamp, event)
	if err != nil {
		return err
	}
	return write(ctx, p.alerts, msg)
}

func (p *kafkaProducer) PublishOrderStatus(ctx context.Context, event *OrderStatusEvent) error {
	key := event.SKU
	if key == "" {
		key = "row-" + strconv.Itoa(event.RowIndex)
	}
	msg, err := message(key, event.Type, event.ID, event.Timestamp, event)
	if err != nil {
		return err
	}
	return write(ctx, p.orders, msg)
}

func (p *kafkaProducer) Close() error {
	errAlerts := p.alerts.Close()
	if err := p.orders.Close(); err != nil {
		return err
	}
	return errAlerts
}

type noopPublisher struct{}

func NewNoop() Publisher {
	return noopPublisher{}
}

func (noopPublisher) PublishStockCritical(context.Context, *StockCriticalEvent) error { return nil }
func (noopPublisher) PublishOrderStatus(context.Context, *OrderStatusEvent) error     { return nil }
func (noopPublisher) Close() error                                                    { return nil }
