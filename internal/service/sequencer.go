package service

import (
	"context"

	"github.com/prohmpiriya/queueme/internal/domain"
	"github.com/prohmpiriya/queueme/internal/repository"
)

// DefaultMinutesPerCustomer is the flat service time assumed per waiting customer
const DefaultMinutesPerCustomer = 15

// QueueSequencer assigns queue numbers and estimates waits.
//
// Estimates multiply a head count by a flat per-customer duration. Service
// durations are not considered.
type QueueSequencer struct {
	minutesPerCustomer int
}

// NewQueueSequencer creates a sequencer with the given per-customer minutes
func NewQueueSequencer(minutesPerCustomer int) *QueueSequencer {
	if minutesPerCustomer <= 0 {
		minutesPerCustomer = DefaultMinutesPerCustomer
	}
	return &QueueSequencer{minutesPerCustomer: minutesPerCustomer}
}

// NextNumber allocates the next number of day. Called inside the admission
// transaction so that a rolled back admission gives its number back.
func (s *QueueSequencer) NextNumber(ctx context.Context, entries repository.QueueEntryRepository, day domain.DayKey) (int, error) {
	return entries.NextNumber(ctx, day)
}

// EstimateWait returns the minutes ahead of a customer with aheadCount
// waiting customers before them
func (s *QueueSequencer) EstimateWait(aheadCount int) int {
	if aheadCount < 0 {
		aheadCount = 0
	}
	return aheadCount * s.minutesPerCustomer
}

// Position returns the live position of entry among the waiting entries of
// its day, counting itself, and the matching estimate. Reads are not
// serialized with admissions; the result is advisory.
func (s *QueueSequencer) Position(ctx context.Context, entries repository.QueueEntryRepository, entry *domain.QueueEntry) (position, estimatedWait int, err error) {
	before, err := entries.CountWaitingBefore(ctx, entry.Day, entry.QueueNumber)
	if err != nil {
		return 0, 0, err
	}
	position = before + 1
	return position, s.EstimateWait(position), nil
}
