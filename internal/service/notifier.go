package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prohmpiriya/queueme/internal/domain"
)

// Notifier dispatches customer notifications. Implementations must not
// block the caller and must not report delivery failures.
type Notifier interface {
	Notify(ctx context.Context, n *domain.Notification)
}

// NoOpNotifier discards notifications
type NoOpNotifier struct{}

func (NoOpNotifier) Notify(ctx context.Context, n *domain.Notification) {}

func newNotification(kind domain.NotificationKind, entry *domain.QueueEntry, destination, message string, now time.Time) *domain.Notification {
	return &domain.Notification{
		ID:          uuid.NewString(),
		Kind:        kind,
		Destination: destination,
		Message:     message,
		EntryID:     entry.ID,
		CreatedAt:   now,
	}
}
