package repository

import (
	"context"
	"time"

	"github.com/prohmpiriya/queueme/internal/domain"
)

// DailyLimitRepository is the per-day capacity ledger
type DailyLimitRepository interface {
	// GetOrCreate returns the day's record, creating it with defaultMax if absent
	GetOrCreate(ctx context.Context, day domain.DayKey, defaultMax int) (*domain.DailyLimit, error)

	// TryReserveSlot atomically increments the day's count unless it is at the
	// maximum, in which case it returns domain.ErrCapacityExceeded and changes nothing.
	// The returned ordinal is the new count.
	TryReserveSlot(ctx context.Context, day domain.DayKey) (int, error)

	// SetMax sets the day's maximum, creating the record if needed
	SetMax(ctx context.Context, day domain.DayKey, max int) (*domain.DailyLimit, error)
}

// EntryFilter selects entries for the admin queue view
type EntryFilter struct {
	// Day restricts to one day; nil means every day
	Day    *domain.DayKey
	Status domain.EntryStatus
}

// RecordFilter selects entries for the paginated records view
type RecordFilter struct {
	Day    *domain.DayKey
	Since  *time.Time
	Status domain.EntryStatus
	Offset int
	Limit  int
}

// QueueEntryRepository stores queue entries and the per-day number sequence
type QueueEntryRepository interface {
	// NextNumber returns the next queue number for day, starting at 1.
	// Concurrent callers never receive the same number.
	NextNumber(ctx context.Context, day domain.DayKey) (int, error)

	Create(ctx context.Context, entry *domain.QueueEntry) error
	GetByID(ctx context.Context, id string) (*domain.QueueEntry, error)

	// FindActiveByCustomer returns the customer's waiting or in-progress entry
	FindActiveByCustomer(ctx context.Context, customerID string) (*domain.QueueEntry, error)

	// CountWaiting counts waiting entries checked in on day
	CountWaiting(ctx context.Context, day domain.DayKey) (int, error)

	// CountWaitingBefore counts waiting entries of day with a smaller number
	CountWaitingBefore(ctx context.Context, day domain.DayKey, queueNumber int) (int, error)

	// UpdateStatus persists a transition, provided the stored status is
	// still from. Otherwise it fails with domain.ErrInvalidTransition.
	UpdateStatus(ctx context.Context, entry *domain.QueueEntry, from domain.EntryStatus) error

	List(ctx context.Context, filter EntryFilter) ([]*domain.QueueEntry, error)
	ListRecords(ctx context.Context, filter RecordFilter) ([]*domain.QueueEntry, int, error)
	CountByStatus(ctx context.Context, day domain.DayKey) (map[domain.EntryStatus]int, error)

	// DeleteOlderThan removes entries checked in before cutoff
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CustomerRepository stores customers keyed by mobile
type CustomerRepository interface {
	FindByMobile(ctx context.Context, mobile string) (*domain.Customer, error)

	// FindOrCreate returns the customer with c.Mobile, inserting c if none exists
	FindOrCreate(ctx context.Context, c *domain.Customer) (*domain.Customer, error)
}

// ServiceRepository reads the service catalog
type ServiceRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Service, error)
	// List returns the catalog sorted by name
	List(ctx context.Context) ([]*domain.Service, error)
	Create(ctx context.Context, s *domain.Service) error
}

// Store groups the repositories behind one transaction boundary
type Store interface {
	DailyLimits() DailyLimitRepository
	Entries() QueueEntryRepository
	Customers() CustomerRepository
	Services() ServiceRepository

	// WithinTx runs fn against a transactional view of the store. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(tx Store) error) error

	Ping(ctx context.Context) error
}
