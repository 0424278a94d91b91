package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prohmpiriya/queueme/internal/domain"
	"github.com/prohmpiriya/queueme/pkg/kafka"
	"github.com/prohmpiriya/queueme/pkg/telemetry"
)

// Message headers set on every published notification
const (
	HeaderKind           = "notification_kind"
	HeaderNotificationID = "notification_id"
	HeaderSource         = "source"
	HeaderContentType    = "content_type"
)

// MessageProducer is the subset of the Kafka producer used for publishing
type MessageProducer interface {
	Produce(ctx context.Context, msg *kafka.Message) error
	Close()
}

// KafkaPublisher publishes notifications to a Kafka topic for the
// notification worker to deliver
type KafkaPublisher struct {
	producer    MessageProducer
	topic       string
	serviceName string
}

var _ Publisher = (*KafkaPublisher)(nil)

// KafkaPublisherConfig contains configuration for the Kafka publisher
type KafkaPublisherConfig struct {
	Brokers     []string
	Topic       string
	ServiceName string
	ClientID    string
}

// NewKafkaPublisher connects a producer and returns a publisher on it
func NewKafkaPublisher(ctx context.Context, cfg *KafkaPublisherConfig) (*KafkaPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("kafka publisher config is required")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "queueme-notifications"
	}

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:       cfg.Brokers,
		ClientID:      clientID,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
		LingerMs:      5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return NewKafkaPublisherWithProducer(producer, cfg.Topic, cfg.ServiceName), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer
func NewKafkaPublisherWithProducer(producer MessageProducer, topic, serviceName string) *KafkaPublisher {
	if topic == "" {
		topic = "queue-notifications"
	}
	if serviceName == "" {
		serviceName = "queueme"
	}
	return &KafkaPublisher{producer: producer, topic: topic, serviceName: serviceName}
}

// Publish writes n keyed by destination so one customer's messages stay ordered
func (p *KafkaPublisher) Publish(ctx context.Context, n *domain.Notification) error {
	value, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	headers := map[string]string{
		HeaderKind:           string(n.Kind),
		HeaderNotificationID: n.ID,
		HeaderSource:         p.serviceName,
		HeaderContentType:    "application/json",
	}
	telemetry.InjectMap(ctx, headers)

	msg := &kafka.Message{
		Topic:     p.topic,
		Key:       []byte(n.Destination),
		Value:     value,
		Headers:   headers,
		Timestamp: time.Now(),
	}

	if err := p.producer.Produce(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s notification: %w", n.Kind, err)
	}
	return nil
}

// Close closes the producer
func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		p.producer.Close()
	}
	return nil
}
