package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/prohmpiriya/queueme/pkg/logger"
	"go.uber.org/zap"
)

// ErrSendFailed is returned by senders that could not deliver a message
var ErrSendFailed = errors.New("notification send failed")

// ErrInvalidDestination is never retried
var ErrInvalidDestination = errors.New("invalid notification destination")

// Sender delivers a text message to a mobile number
type Sender interface {
	Send(ctx context.Context, destination, message string) error
}

// LogSender writes messages to the log instead of an SMS gateway
type LogSender struct {
	log *logger.Logger
}

// NewLogSender creates a LogSender
func NewLogSender(log *logger.Logger) *LogSender {
	if log == nil {
		log = logger.Get()
	}
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, destination, message string) error {
	if destination == "" {
		return ErrInvalidDestination
	}
	s.log.WithContext(ctx).Info("SMS sent",
		zap.String("to", destination),
		zap.String("message", message),
	)
	return nil
}

// NoopSender discards every message
type NoopSender struct{}

func (NoopSender) Send(ctx context.Context, destination, message string) error { return nil }

// FailingSender rejects every message. Used to exercise failure paths.
type FailingSender struct{}

func (FailingSender) Send(ctx context.Context, destination, message string) error {
	return fmt.Errorf("%w: provider rejected message to %s", ErrSendFailed, destination)
}

// NewSender returns the sender for kind: log (default), noop or fail
func NewSender(kind string, log *logger.Logger) Sender {
	switch kind {
	case "noop":
		return NoopSender{}
	case "fail":
		return FailingSender{}
	default:
		return NewLogSender(log)
	}
}
