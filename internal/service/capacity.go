package service

import (
	"context"

	"github.com/prohmpiriya/queueme/internal/domain"
	"github.com/prohmpiriya/queueme/internal/repository"
)

// DefaultDailyLimit is the capacity of a day nobody configured
const DefaultDailyLimit = 50

// CapacityLedger enforces the daily customer cap on top of the
// DailyLimitRepository. The day's record is created lazily.
type CapacityLedger struct {
	defaultMax int
}

// NewCapacityLedger creates a ledger that opens days with defaultMax slots
func NewCapacityLedger(defaultMax int) *CapacityLedger {
	if defaultMax <= 0 {
		defaultMax = DefaultDailyLimit
	}
	return &CapacityLedger{defaultMax: defaultMax}
}

// Reserve takes one slot of day or fails with domain.ErrCapacityExceeded.
// The slot is released only by rolling back the surrounding transaction.
func (l *CapacityLedger) Reserve(ctx context.Context, limits repository.DailyLimitRepository, day domain.DayKey) (int, error) {
	if _, err := limits.GetOrCreate(ctx, day, l.defaultMax); err != nil {
		return 0, err
	}
	return limits.TryReserveSlot(ctx, day)
}

// Get returns the record of day, creating it with the default maximum
func (l *CapacityLedger) Get(ctx context.Context, limits repository.DailyLimitRepository, day domain.DayKey) (*domain.DailyLimit, error) {
	return limits.GetOrCreate(ctx, day, l.defaultMax)
}

// SetMax changes the maximum of day. Lowering it below the current count
// blocks further admissions without undoing any.
func (l *CapacityLedger) SetMax(ctx context.Context, limits repository.DailyLimitRepository, day domain.DayKey, max int) (*domain.DailyLimit, error) {
	if err := domain.ValidateMaxCustomers(max); err != nil {
		return nil, err
	}
	return limits.SetMax(ctx, day, max)
}
