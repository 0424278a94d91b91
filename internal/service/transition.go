package service

import (
	"context"
	"time"

	"github.com/prohmpiriya/queueme/internal/domain"
	"github.com/prohmpiriya/queueme/internal/metrics"
	"github.com/prohmpiriya/queueme/internal/repository"
	"github.com/prohmpiriya/queueme/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// StatusTransitioner applies state machine transitions to stored entries
// and emits the notifications bound to them
type StatusTransitioner struct {
	entries   repository.QueueEntryRepository
	clock     domain.Clock
	notifier  Notifier
	templates domain.Templates
}

// NewStatusTransitioner creates a StatusTransitioner
func NewStatusTransitioner(entries repository.QueueEntryRepository, clock domain.Clock, notifier Notifier, templates domain.Templates) *StatusTransitioner {
	if notifier == nil {
		notifier = NoOpNotifier{}
	}
	return &StatusTransitioner{
		entries:   entries,
		clock:     clock,
		notifier:  notifier,
		templates: templates,
	}
}

// Apply moves entry to next. The stored row is updated only if its status
// is still the one entry was read with, so of two concurrent identical
// transitions exactly one succeeds. entry is updated in place.
func (t *StatusTransitioner) Apply(ctx context.Context, entry *domain.QueueEntry, next domain.EntryStatus, source domain.TriggerSource) error {
	ctx, span := telemetry.StartSpan(ctx, "service.queue.transition")
	defer span.End()

	from := entry.Status
	span.SetAttributes(
		attribute.String("entry_id", entry.ID),
		attribute.String("from", string(from)),
		attribute.String("to", string(next)),
		attribute.String("source", string(source)),
	)

	now := t.clock.Now()
	updated := *entry
	if err := updated.Transition(next, now); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := t.entries.UpdateStatus(ctx, &updated, from); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	*entry = updated

	metrics.RecordTransition(from, next, source)
	t.notify(ctx, entry, from, source, now)

	span.SetStatus(codes.Ok, "")
	return nil
}

func (t *StatusTransitioner) notify(ctx context.Context, entry *domain.QueueEntry, from domain.EntryStatus, source domain.TriggerSource, now time.Time) {
	if entry.Customer == nil {
		return
	}
	name, mobile := entry.Customer.Name, entry.Customer.Mobile

	switch {
	case entry.Status == domain.StatusInProgress && from == domain.StatusWaiting:
		if t.templates.Ready == "" {
			return
		}
		msg := t.templates.ReadyMessage(name, entry.QueueNumber)
		t.notifier.Notify(ctx, newNotification(domain.NotificationReady, entry, mobile, msg, now))

	case entry.Status == domain.StatusCancelled:
		msg, ok := t.templates.CancelMessage(source, name, entry.QueueNumber)
		if !ok {
			return
		}
		t.notifier.Notify(ctx, newNotification(domain.NotificationCancelled, entry, mobile, msg, now))
	}
}
