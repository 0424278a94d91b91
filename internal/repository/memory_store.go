package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prohmpiriya/queueme/internal/domain"
)

// memoryData is the full state of a MemoryStore
type memoryData struct {
	limits    map[domain.DayKey]domain.DailyLimit
	sequences map[domain.DayKey]int
	customers map[string]domain.Customer // by id
	byMobile  map[string]string          // mobile -> customer id
	services  map[string]domain.Service
	entries   map[string]domain.QueueEntry
}

func newMemoryData() *memoryData {
	return &memoryData{
		limits:    make(map[domain.DayKey]domain.DailyLimit),
		sequences: make(map[domain.DayKey]int),
		customers: make(map[string]domain.Customer),
		byMobile:  make(map[string]string),
		services:  make(map[string]domain.Service),
		entries:   make(map[string]domain.QueueEntry),
	}
}

func (d *memoryData) clone() *memoryData {
	c := newMemoryData()
	for k, v := range d.limits {
		c.limits[k] = v
	}
	for k, v := range d.sequences {
		c.sequences[k] = v
	}
	for k, v := range d.customers {
		c.customers[k] = v
	}
	for k, v := range d.byMobile {
		c.byMobile[k] = v
	}
	for k, v := range d.services {
		c.services[k] = v
	}
	for k, v := range d.entries {
		c.entries[k] = v
	}
	return c
}

// MemoryStore is an in-process Store for local runs and tests.
// A single mutex serializes every operation, and WithinTx holds it for the
// whole callback and commits by swapping in the modified copy.
type MemoryStore struct {
	mu   *sync.Mutex
	root *MemoryStore
	data *memoryData
	inTx bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{mu: &sync.Mutex{}, data: newMemoryData()}
	s.root = s
	return s
}

// lock takes the store mutex unless the caller already holds it in a transaction
func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) DailyLimits() DailyLimitRepository { return &memDailyLimits{s: s} }

func (s *MemoryStore) Entries() QueueEntryRepository { return &memEntries{s: s} }

func (s *MemoryStore) Customers() CustomerRepository { return &memCustomers{s: s} }

func (s *MemoryStore) Services() ServiceRepository { return &memServices{s: s} }

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &MemoryStore{mu: s.mu, root: s.root, data: s.root.data.clone(), inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	s.root.data = tx.data
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

type memDailyLimits struct {
	s *MemoryStore
}

func (r *memDailyLimits) GetOrCreate(ctx context.Context, day domain.DayKey, defaultMax int) (*domain.DailyLimit, error) {
	defer r.s.lock()()

	limit, ok := r.s.data.limits[day]
	if !ok {
		limit = domain.DailyLimit{Day: day, MaxCustomers: defaultMax, UpdatedAt: time.Now()}
		r.s.data.limits[day] = limit
	}
	return &limit, nil
}

func (r *memDailyLimits) TryReserveSlot(ctx context.Context, day domain.DayKey) (int, error) {
	defer r.s.lock()()

	limit, ok := r.s.data.limits[day]
	if !ok || limit.CurrentCount >= limit.MaxCustomers {
		return 0, domain.ErrCapacityExceeded
	}
	limit.CurrentCount++
	limit.UpdatedAt = time.Now()
	r.s.data.limits[day] = limit
	return limit.CurrentCount, nil
}

func (r *memDailyLimits) SetMax(ctx context.Context, day domain.DayKey, max int) (*domain.DailyLimit, error) {
	defer r.s.lock()()

	limit, ok := r.s.data.limits[day]
	if !ok {
		limit = domain.DailyLimit{Day: day}
	}
	limit.MaxCustomers = max
	limit.UpdatedAt = time.Now()
	r.s.data.limits[day] = limit
	return &limit, nil
}

type memCustomers struct {
	s *MemoryStore
}

func (r *memCustomers) FindByMobile(ctx context.Context, mobile string) (*domain.Customer, error) {
	defer r.s.lock()()

	id, ok := r.s.data.byMobile[mobile]
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	c := r.s.data.customers[id]
	return &c, nil
}

func (r *memCustomers) FindOrCreate(ctx context.Context, in *domain.Customer) (*domain.Customer, error) {
	defer r.s.lock()()

	if id, ok := r.s.data.byMobile[in.Mobile]; ok {
		c := r.s.data.customers[id]
		return &c, nil
	}
	c := *in
	r.s.data.customers[c.ID] = c
	r.s.data.byMobile[c.Mobile] = c.ID
	return &c, nil
}

type memServices struct {
	s *MemoryStore
}

func (r *memServices) GetByID(ctx context.Context, id string) (*domain.Service, error) {
	defer r.s.lock()()

	svc, ok := r.s.data.services[id]
	if !ok {
		return nil, domain.ErrServiceNotFound
	}
	return &svc, nil
}

func (r *memServices) List(ctx context.Context) ([]*domain.Service, error) {
	defer r.s.lock()()

	services := make([]*domain.Service, 0, len(r.s.data.services))
	for _, svc := range r.s.data.services {
		svc := svc
		services = append(services, &svc)
	}
	sort.Slice(services, func(i, j int) bool { return services[i].Name < services[j].Name })
	return services, nil
}

func (r *memServices) Create(ctx context.Context, svc *domain.Service) error {
	if err := svc.Validate(); err != nil {
		return err
	}
	defer r.s.lock()()

	r.s.data.services[svc.ID] = *svc
	return nil
}

type memEntries struct {
	s *MemoryStore
}

// hydrate returns a copy of e with customer and service attached
func (r *memEntries) hydrate(e domain.QueueEntry) *domain.QueueEntry {
	if c, ok := r.s.data.customers[e.CustomerID]; ok {
		e.Customer = &c
	}
	if svc, ok := r.s.data.services[e.ServiceID]; ok {
		e.Service = &svc
	}
	return &e
}

func (r *memEntries) NextNumber(ctx context.Context, day domain.DayKey) (int, error) {
	defer r.s.lock()()

	r.s.data.sequences[day]++
	return r.s.data.sequences[day], nil
}

func (r *memEntries) Create(ctx context.Context, e *domain.QueueEntry) error {
	defer r.s.lock()()

	for _, existing := range r.s.data.entries {
		if existing.CustomerID == e.CustomerID && existing.Status.IsActive() {
			return domain.ErrAlreadyQueued
		}
	}
	stored := *e
	stored.Customer, stored.Service = nil, nil
	r.s.data.entries[e.ID] = stored
	return nil
}

func (r *memEntries) GetByID(ctx context.Context, id string) (*domain.QueueEntry, error) {
	defer r.s.lock()()

	e, ok := r.s.data.entries[id]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	return r.hydrate(e), nil
}

func (r *memEntries) FindActiveByCustomer(ctx context.Context, customerID string) (*domain.QueueEntry, error) {
	defer r.s.lock()()

	for _, e := range r.s.data.entries {
		if e.CustomerID == customerID && e.Status.IsActive() {
			return r.hydrate(e), nil
		}
	}
	return nil, domain.ErrEntryNotFound
}

func (r *memEntries) CountWaiting(ctx context.Context, day domain.DayKey) (int, error) {
	defer r.s.lock()()

	n := 0
	for _, e := range r.s.data.entries {
		if e.Day == day && e.Status == domain.StatusWaiting {
			n++
		}
	}
	return n, nil
}

func (r *memEntries) CountWaitingBefore(ctx context.Context, day domain.DayKey, queueNumber int) (int, error) {
	defer r.s.lock()()

	n := 0
	for _, e := range r.s.data.entries {
		if e.Day == day && e.Status == domain.StatusWaiting && e.QueueNumber < queueNumber {
			n++
		}
	}
	return n, nil
}

func (r *memEntries) UpdateStatus(ctx context.Context, e *domain.QueueEntry, from domain.EntryStatus) error {
	defer r.s.lock()()

	stored, ok := r.s.data.entries[e.ID]
	if !ok {
		return domain.ErrEntryNotFound
	}
	if stored.Status != from {
		return &domain.TransitionError{From: stored.Status, To: e.Status}
	}
	stored.Status = e.Status
	stored.StartTime = e.StartTime
	stored.EndTime = e.EndTime
	r.s.data.entries[e.ID] = stored
	return nil
}

func (r *memEntries) List(ctx context.Context, filter EntryFilter) ([]*domain.QueueEntry, error) {
	defer r.s.lock()()

	entries := make([]*domain.QueueEntry, 0)
	for _, e := range r.s.data.entries {
		if filter.Day != nil && e.Day != *filter.Day {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		entries = append(entries, r.hydrate(e))
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Day != entries[j].Day {
			return entries[i].Day < entries[j].Day
		}
		return entries[i].QueueNumber < entries[j].QueueNumber
	})
	return entries, nil
}

func (r *memEntries) ListRecords(ctx context.Context, filter RecordFilter) ([]*domain.QueueEntry, int, error) {
	defer r.s.lock()()

	matched := make([]*domain.QueueEntry, 0)
	for _, e := range r.s.data.entries {
		if filter.Day != nil && e.Day != *filter.Day {
			continue
		}
		if filter.Since != nil && e.CheckInTime.Before(*filter.Since) {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		matched = append(matched, r.hydrate(e))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CheckInTime.After(matched[j].CheckInTime) })

	total := len(matched)
	start := max(filter.Offset, 0)
	if start > total {
		start = total
	}
	end := total
	if filter.Limit > 0 && filter.Limit < total-start {
		end = start + filter.Limit
	}
	return matched[start:end], total, nil
}

func (r *memEntries) CountByStatus(ctx context.Context, day domain.DayKey) (map[domain.EntryStatus]int, error) {
	defer r.s.lock()()

	counts := make(map[domain.EntryStatus]int, 4)
	for _, e := range r.s.data.entries {
		if e.Day == day {
			counts[e.Status]++
		}
	}
	return counts, nil
}

func (r *memEntries) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	defer r.s.lock()()

	var n int64
	for id, e := range r.s.data.entries {
		if e.CheckInTime.Before(cutoff) {
			delete(r.s.data.entries, id)
			n++
		}
	}
	return n, nil
}
