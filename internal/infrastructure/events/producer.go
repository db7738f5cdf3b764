// internal/infrastructure/events/producer.go
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/config"
)

const EventTypeOrderPlaced = "order.placed"

// OrderPlacedItem is one line of a placed order
type OrderPlacedItem struct {
	ProductID uint   `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

// OrderPlacedEvent is published once per finalized checkout
type OrderPlacedEvent struct {
	EventID         string            `json:"event_id"`
	OrderID         uint              `json:"order_id"`
	UserID          uint              `json:"user_id"`
	Total           string            `json:"total"`
	Items           []OrderPlacedItem `json:"items"`
	PaymentIntentID string            `json:"payment_intent_id,omitempty"`
	Timestamp       time.Time         `json:"timestamp"`
}

// Publisher publishes domain events
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, event OrderPlacedEvent) error
	Close() error
}

// NewPublisher returns a Kafka producer when brokers are configured and a
// logging publisher otherwise
func NewPublisher(cfg *config.Config, log *logrus.Logger) Publisher {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Info("no Kafka brokers configured, order events will only be logged")
		return NewLogPublisher(log)
	}
	return NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic, log)
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer writes events to a Kafka topic keyed by order id
type KafkaProducer struct {
	writer messageWriter
	log    *logrus.Logger
}

// NewKafkaProducer creates a producer for the given brokers and topic
func NewKafkaProducer(brokers []string, topic string, log *logrus.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
	}
	return &KafkaProducer{writer: w, log: log}
}

// PublishOrderPlaced publishes an order.placed event
func (p *KafkaProducer) PublishOrderPlaced(ctx context.Context, event OrderPlacedEvent) error {
	stamp(&event)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("ORDER#%d", event.OrderID)),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeOrderPlaced)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish order event: %w", err)
	}

	p.log.WithFields(logrus.Fields{"event_id": event.EventID, "order_id": event.OrderID}).Debug("order event published")
	return nil
}

// Close flushes and closes the writer
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// LogPublisher logs events instead of sending them anywhere
type LogPublisher struct {
	log *logrus.Logger
}

// NewLogPublisher creates a logging publisher
func NewLogPublisher(log *logrus.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

// PublishOrderPlaced logs the event
func (p *LogPublisher) PublishOrderPlaced(_ context.Context, event OrderPlacedEvent) error {
	stamp(&event)
	p.log.WithFields(logrus.Fields{
		"event_type": EventTypeOrderPlaced,
		"event_id":   event.EventID,
		"order_id":   event.OrderID,
		"user_id":    event.UserID,
		"total":      event.Total,
		"items":      len(event.Items),
	}).Info("order placed")
	return nil
}

// Close is a no-op
func (p *LogPublisher) Close() error {
	return nil
}

func stamp(event *OrderPlacedEvent) {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
}
