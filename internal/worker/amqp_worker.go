package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prohmpiriya/queueme/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Deliveries is an open consuming session on the notification queue
type Deliveries interface {
	Messages() <-chan amqp.Delivery
	Close() error
}

// DialFunc opens a new consuming session
type DialFunc func(ctx context.Context) (Deliveries, error)

// AMQPWorker consumes the RabbitMQ notification queue, reconnecting with
// backoff whenever the broker connection drops
type AMQPWorker struct {
	dial       DialFunc
	handler    *NotificationHandler
	log        *logger.Logger
	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewAMQPWorker creates a worker that consumes sessions opened by dial
func NewAMQPWorker(dial DialFunc, handler *NotificationHandler, log *logger.Logger) *AMQPWorker {
	if log == nil {
		log = logger.Get()
	}
	return &AMQPWorker{
		dial:       dial,
		handler:    handler,
		log:        log,
		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
	}
}

// Run consumes until ctx is done
func (w *AMQPWorker) Run(ctx context.Context) error {
	w.log.Info("AMQP notification worker started")
	backoff := w.minBackoff
	for {
		session, err := w.dial(ctx)
		if err != nil {
			w.log.Warn("Failed to open AMQP session", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return nil
			}
			if backoff < w.maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = w.minBackoff

		err = w.consume(ctx, session)
		_ = session.Close()
		if ctx.Err() != nil {
			return nil
		}
		w.log.Warn("AMQP consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, w.minBackoff) {
			return nil
		}
	}
}

func (w *AMQPWorker) consume(ctx context.Context, session Deliveries) error {
	msgs := session.Messages()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			w.handle(ctx, d)
		}
	}
}

func (w *AMQPWorker) handle(ctx context.Context, d amqp.Delivery) {
	headers := tableHeaders(d.Headers)
	err := w.handler.Handle(ctx, d.Body, headers)
	if err == nil {
		_ = d.Ack(false)
		return
	}

	parked, perr := w.handler.Park(ctx, d.RoutingKey, d.MessageId, d.Body, headers, err)
	switch {
	case perr != nil:
		w.log.Error("Failed to park notification message, requeueing",
			zap.String("message_id", d.MessageId),
			zap.NamedError("cause", err),
			zap.Error(perr),
		)
		_ = d.Nack(false, true)
	case parked:
		_ = d.Ack(false)
	default:
		w.log.Warn("Rejecting notification message",
			zap.String("message_id", d.MessageId),
			zap.Error(err),
		)
		// no requeue: delivery already retried, and malformed bodies never succeed
		_ = d.Nack(false, false)
	}
}

func tableHeaders(t amqp.Table) map[string]string {
	if len(t) == 0 {
		return nil
	}
	out := make(map[string]string, len(t))
	for k, v := range t {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

type amqpSession struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	msgs <-chan amqp.Delivery
}

func (s *amqpSession) Messages() <-chan amqp.Delivery { return s.msgs }

func (s *amqpSession) Close() error {
	err := s.ch.Close()
	if cerr := s.conn.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// DialAMQP returns a DialFunc that connects to url and consumes queue with
// manual acks and the given prefetch
func DialAMQP(url, queue string, prefetch int) DialFunc {
	return func(ctx context.Context) (Deliveries, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq dial failed: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("rabbitmq channel open failed: %w", err)
		}
		fail := func(step string, err error) (Deliveries, error) {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("rabbitmq %s failed: %w", step, err)
		}

		if prefetch > 0 {
			if err := ch.Qos(prefetch, 0, false); err != nil {
				return fail("qos", err)
			}
		}
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fail("queue declare", err)
		}
		msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
		if err != nil {
			return fail("consume", err)
		}
		return &amqpSession{conn: conn, ch: ch, msgs: msgs}, nil
	}
}
