package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prohmpiriya/queueme/internal/domain"
	"github.com/prohmpiriya/queueme/pkg/telemetry"
	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPChannel is the subset of *amqp.Channel used for publishing
type AMQPChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes notifications to a durable RabbitMQ queue.
// Channels are not safe for concurrent publishing, so calls are serialized.
type AMQPPublisher struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    AMQPChannel
	queue string
}

var _ Publisher = (*AMQPPublisher)(nil)

// NewAMQPPublisher dials the broker and declares queue
func NewAMQPPublisher(url, queue string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial failed: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel open failed: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq queue declare failed: %w", err)
	}

	return &AMQPPublisher{conn: conn, ch: ch, queue: queue}, nil
}

// NewAMQPPublisherWithChannel publishes on an already opened channel
func NewAMQPPublisherWithChannel(ch AMQPChannel, queue string) *AMQPPublisher {
	return &AMQPPublisher{ch: ch, queue: queue}
}

func (p *AMQPPublisher) Publish(ctx context.Context, n *domain.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	headers := map[string]string{}
	telemetry.InjectMap(ctx, headers)
	table := amqp.Table{HeaderKind: string(n.Kind)}
	for k, v := range headers {
		table[k] = v
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    n.ID,
		Timestamp:    time.Now().UTC(),
		Headers:      table,
		Body:         body,
	}

	if err := p.publish(ctx, p.queue, pub); err != nil {
		return fmt.Errorf("failed to publish %s notification: %w", n.Kind, err)
	}
	return nil
}

// WriteMessage publishes a raw JSON body to queue. Dead letters reach their
// queue this way.
func (p *AMQPPublisher) WriteMessage(ctx context.Context, queue, key string, body []byte, headers map[string]string) error {
	table := amqp.Table{}
	for k, v := range headers {
		table[k] = v
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    key,
		Timestamp:    time.Now().UTC(),
		Headers:      table,
		Body:         body,
	}
	if err := p.publish(ctx, queue, pub); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", queue, err)
	}
	return nil
}

func (p *AMQPPublisher) publish(ctx context.Context, queue string, pub amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// default exchange, routing key = queue name
	return p.ch.PublishWithContext(ctx, "", queue, false, false, pub)
}

// Close closes the channel and the connection it owns
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
