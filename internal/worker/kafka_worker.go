package worker

import (
	"context"
	"errors"
	"time"

	"github.com/prohmpiriya/queueme/internal/notification"
	"github.com/prohmpiriya/queueme/pkg/kafka"
	"github.com/prohmpiriya/queueme/pkg/logger"
	"go.uber.org/zap"
)

// RecordSource is the part of the Kafka consumer the worker polls
type RecordSource interface {
	Poll(ctx context.Context) ([]*kafka.Record, error)
	CommitRecords(ctx context.Context, records []*kafka.Record) error
}

// KafkaWorker consumes the notification topic and delivers each record.
// Offsets are committed after the batch is handled, so a crash replays at
// most one batch. Undeliverable records are parked on the DLQ when one is
// configured, otherwise logged and skipped.
type KafkaWorker struct {
	source       RecordSource
	handler      *NotificationHandler
	log          *logger.Logger
	pollInterval time.Duration
}

// NewKafkaWorker creates a worker reading from source
func NewKafkaWorker(source RecordSource, handler *NotificationHandler, log *logger.Logger) *KafkaWorker {
	if log == nil {
		log = logger.Get()
	}
	return &KafkaWorker{
		source:       source,
		handler:      handler,
		log:          log,
		pollInterval: time.Second,
	}
}

// Run polls until ctx is done or the consumer is closed
func (w *KafkaWorker) Run(ctx context.Context) error {
	w.log.Info("Kafka notification worker started")
	for {
		if ctx.Err() != nil {
			return nil
		}

		records, err := w.source.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, kafka.ErrClientClosed) {
				return err
			}
			w.log.Error("Failed to poll Kafka", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.pollInterval):
			}
			continue
		}
		if len(records) == 0 {
			continue
		}

		w.process(ctx, records)

		// commit even when the parent is cancelled so handled records are not replayed
		if err := w.source.CommitRecords(context.WithoutCancel(ctx), records); err != nil {
			w.log.Error("Failed to commit offsets", zap.Error(err), zap.Int("records", len(records)))
		}
	}
}

func (w *KafkaWorker) process(ctx context.Context, records []*kafka.Record) {
	for _, r := range records {
		headers := kafka.Headers(r)
		err := w.handler.Handle(ctx, r.Value, headers)
		if err == nil {
			continue
		}

		parked, perr := w.handler.Park(ctx, r.Topic, string(r.Key), r.Value, headers, err)
		switch {
		case perr != nil:
			// the offset is still committed; the body is logged so it can be replayed by hand
			w.log.Error("Failed to park notification record",
				zap.String("topic", r.Topic),
				zap.Int32("partition", r.Partition),
				zap.Int64("offset", r.Offset),
				zap.ByteString("value", r.Value),
				zap.NamedError("cause", err),
				zap.Error(perr),
			)
		case !parked:
			w.log.Warn("Skipping notification record",
				zap.String("topic", r.Topic),
				zap.Int32("partition", r.Partition),
				zap.Int64("offset", r.Offset),
				zap.String("kind", kafka.HeaderValue(r, notification.HeaderKind)),
				zap.Error(err),
			)
		}
	}
}
