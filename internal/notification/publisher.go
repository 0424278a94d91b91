package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prohmpiriya/queueme/internal/domain"
	"github.com/prohmpiriya/queueme/pkg/retry"
	"github.com/prohmpiriya/queueme/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Publisher hands a notification to its transport
type Publisher interface {
	Publish(ctx context.Context, n *domain.Notification) error
	Close() error
}

// RetryConfig bounds delivery attempts of one notification
type RetryConfig struct {
	MaxRetries    int
	RetryInterval time.Duration
}

func (c RetryConfig) retrier() *retry.Retrier {
	return retry.New(&retry.Config{
		MaxRetries:      c.MaxRetries,
		InitialInterval: c.RetryInterval,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	})
}

// DirectPublisher delivers notifications in process through a Sender,
// retrying failed sends with backoff
type DirectPublisher struct {
	sender  Sender
	retrier *retry.Retrier
}

var _ Publisher = (*DirectPublisher)(nil)

// NewDirectPublisher creates a publisher that sends immediately
func NewDirectPublisher(sender Sender, cfg RetryConfig) *DirectPublisher {
	return &DirectPublisher{sender: sender, retrier: cfg.retrier()}
}

func (p *DirectPublisher) Publish(ctx context.Context, n *domain.Notification) error {
	return Deliver(ctx, p.sender, p.retrier, n)
}

func (p *DirectPublisher) Close() error { return nil }

// Deliver sends n through sender with the retrier's policy
func Deliver(ctx context.Context, sender Sender, retrier *retry.Retrier, n *domain.Notification) error {
	ctx, span := telemetry.StartSpan(ctx, "notification.deliver")
	defer span.End()

	span.SetAttributes(
		attribute.String("notification_id", n.ID),
		attribute.String("kind", string(n.Kind)),
	)

	result := retrier.Do(ctx, func(ctx context.Context) error {
		err := sender.Send(ctx, n.Destination, n.Message)
		if errors.Is(err, ErrInvalidDestination) {
			return retry.Permanent(err)
		}
		return err
	})
	span.SetAttributes(attribute.Int("attempts", result.Attempts))

	if result.Err != nil {
		err := fmt.Errorf("deliver %s after %d attempts: %w", n.ID, result.Attempts, result.LastError)
		if result.LastError == nil {
			err = fmt.Errorf("deliver %s: %w", n.ID, result.Err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}
