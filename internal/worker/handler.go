package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prohmpiriya/queueme/internal/domain"
	"github.com/prohmpiriya/queueme/internal/metrics"
	"github.com/prohmpiriya/queueme/internal/notification"
	"github.com/prohmpiriya/queueme/pkg/logger"
	"github.com/prohmpiriya/queueme/pkg/retry"
	"github.com/prohmpiriya/queueme/pkg/telemetry"
	"go.uber.org/zap"
)

// ErrMalformed marks a message that can never be delivered and should not be retried
var ErrMalformed = errors.New("malformed notification message")

// Dead letter error codes
const (
	DLQCodeMalformed      = "MALFORMED"
	DLQCodeDeliveryFailed = "DELIVERY_FAILED"
)

// NotificationHandler decodes broker messages and hands them to the sink
// that talks to the SMS provider. Messages that fail are parked on dlq.
type NotificationHandler struct {
	sink notification.Publisher
	dlq  retry.DLQPublisher
	log  *logger.Logger
}

// NewNotificationHandler creates a handler delivering through sink. A nil
// dlq leaves failed messages to the transport.
func NewNotificationHandler(sink notification.Publisher, dlq retry.DLQPublisher, log *logger.Logger) *NotificationHandler {
	if log == nil {
		log = logger.Get()
	}
	return &NotificationHandler{sink: sink, dlq: dlq, log: log}
}

// Handle delivers one message. headers carry the producer's trace context.
func (h *NotificationHandler) Handle(ctx context.Context, body []byte, headers map[string]string) error {
	if len(headers) > 0 {
		ctx = telemetry.ExtractMap(ctx, headers)
	}

	var n domain.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if n.Destination == "" || n.Message == "" {
		return fmt.Errorf("%w: notification %q has no destination or message", ErrMalformed, n.ID)
	}

	if err := h.sink.Publish(ctx, &n); err != nil {
		metrics.RecordNotification(metrics.NotificationFailed)
		h.log.WithContext(ctx).Error("Notification delivery failed",
			zap.String("notification_id", n.ID),
			zap.String("kind", string(n.Kind)),
			zap.String("to", n.Destination),
			zap.Error(err),
		)
		return err
	}

	metrics.RecordNotification(metrics.NotificationSent)
	h.log.WithContext(ctx).Debug("Notification delivered",
		zap.String("notification_id", n.ID),
		zap.String("kind", string(n.Kind)),
	)
	return nil
}

// Park moves a message that Handle rejected to the dead letter queue. It
// reports false when no DLQ is configured.
func (h *NotificationHandler) Park(ctx context.Context, origin, key string, body []byte, headers map[string]string, cause error) (bool, error) {
	if h.dlq == nil {
		return false, nil
	}

	var n domain.Notification
	_ = json.Unmarshal(body, &n)
	id := n.ID
	if id == "" {
		id = key
	}

	code := DLQCodeDeliveryFailed
	if errors.Is(cause, ErrMalformed) {
		code = DLQCodeMalformed
	}

	err := h.dlq.PublishToDLQ(ctx, &retry.DLQMessage{
		ID:            id,
		OriginalTopic: origin,
		OriginalKey:   key,
		Payload:       retry.RawPayload(body),
		Headers:       headers,
		Error:         cause.Error(),
		ErrorCode:     code,
	})
	if err != nil {
		return false, fmt.Errorf("park notification %q: %w", id, err)
	}

	metrics.RecordNotification(metrics.NotificationDeadLettered)
	h.log.WithContext(ctx).Warn("Notification moved to DLQ",
		zap.String("notification_id", id),
		zap.String("dlq", h.dlq.GetDLQTopic(origin)),
		zap.String("error_code", code),
	)
	return true, nil
}
