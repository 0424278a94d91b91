package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/queueme/internal/domain"
	"github.com/prohmpiriya/queueme/pkg/database"
	"github.com/prohmpiriya/queueme/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	pgUniqueViolation = "23505"
	activeEntryIndex  = "idx_queue_entries_one_active"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store on PostgreSQL with pgxpool
type PostgresStore struct {
	pool *pgxpool.Pool
	q    querier
	inTx bool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a store on pool
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, q: pool}
}

func (s *PostgresStore) DailyLimits() DailyLimitRepository { return &pgDailyLimits{q: s.q} }

func (s *PostgresStore) Entries() QueueEntryRepository { return &pgEntries{q: s.q} }

func (s *PostgresStore) Customers() CustomerRepository { return &pgCustomers{q: s.q} }

func (s *PostgresStore) Services() ServiceRepository { return &pgServices{q: s.q} }

// WithinTx runs fn in a transaction. Nested calls join the outer transaction.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}

	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.tx")
	defer span.End()

	err := database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&PostgresStore{pool: s.pool, q: tx, inTx: true})
	})
	if err != nil {
		// business rejections roll back too; only record real faults
		if errors.Is(err, domain.ErrStoreUnavailable) {
			spanError(span, err)
		}
		return classify("transaction", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return domain.Unavailable("ping", err)
	}
	return nil
}

func spanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// classify wraps connection-level faults as domain.ErrStoreUnavailable.
// Errors that are already classified, SQL errors and cancellations keep their identity.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return nil
	case isDomainError(err):
		return err
	case errors.As(err, &pgErr),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return domain.Unavailable(op, err)
	}
}

func isDomainError(err error) bool {
	return errors.Is(err, domain.ErrStoreUnavailable) ||
		errors.Is(err, domain.ErrAlreadyQueued) ||
		errors.Is(err, domain.ErrCapacityExceeded) ||
		errors.Is(err, domain.ErrInvalidTransition) ||
		errors.Is(err, domain.ErrValidation) ||
		domain.IsNotFoundError(err)
}

// isUUID guards UUID columns from malformed ids, which postgres rejects
// with a syntax error instead of matching nothing
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == constraint
}

// pgDailyLimits implements DailyLimitRepository
type pgDailyLimits struct {
	q querier
}

func (r *pgDailyLimits) GetOrCreate(ctx context.Context, day domain.DayKey, defaultMax int) (*domain.DailyLimit, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.daily_limit.get_or_create")
	defer span.End()

	span.SetAttributes(attribute.String("day", day.String()))

	_, err := r.q.Exec(ctx, `
		INSERT INTO daily_limits (day, max_customers, current_count, updated_at)
		VALUES ($1, $2, 0, now())
		ON CONFLICT (day) DO NOTHING
	`, day.Date(), defaultMax)
	if err != nil {
		spanError(span, err)
		return nil, classify("daily_limit.get_or_create", err)
	}

	limit, err := scanDailyLimit(r.q.QueryRow(ctx, `
		SELECT day, max_customers, current_count, updated_at
		FROM daily_limits
		WHERE day = $1
	`, day.Date()))
	if err != nil {
		spanError(span, err)
		return nil, classify("daily_limit.get_or_create", err)
	}

	span.SetStatus(codes.Ok, "")
	return limit, nil
}

// TryReserveSlot relies on the row lock taken by UPDATE; it is held until the
// surrounding transaction ends, so concurrent reservations for a day serialize.
func (r *pgDailyLimits) TryReserveSlot(ctx context.Context, day domain.DayKey) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.daily_limit.try_reserve")
	defer span.End()

	span.SetAttributes(attribute.String("day", day.String()))

	var count int
	err := r.q.QueryRow(ctx, `
		UPDATE daily_limits
		SET current_count = current_count + 1, updated_at = now()
		WHERE day = $1 AND current_count < max_customers
		RETURNING current_count
	`, day.Date()).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "capacity exceeded")
			return 0, domain.ErrCapacityExceeded
		}
		spanError(span, err)
		return 0, classify("daily_limit.try_reserve", err)
	}

	span.SetAttributes(attribute.Int("current_count", count))
	span.SetStatus(codes.Ok, "")
	return count, nil
}

func (r *pgDailyLimits) SetMax(ctx context.Context, day domain.DayKey, max int) (*domain.DailyLimit, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.daily_limit.set_max")
	defer span.End()

	span.SetAttributes(attribute.String("day", day.String()), attribute.Int("max_customers", max))

	limit, err := scanDailyLimit(r.q.QueryRow(ctx, `
		INSERT INTO daily_limits (day, max_customers, current_count, updated_at)
		VALUES ($1, $2, 0, now())
		ON CONFLICT (day) DO UPDATE
		SET max_customers = EXCLUDED.max_customers, updated_at = now()
		RETURNING day, max_customers, current_count, updated_at
	`, day.Date(), max))
	if err != nil {
		spanError(span, err)
		return nil, classify("daily_limit.set_max", err)
	}

	span.SetStatus(codes.Ok, "")
	return limit, nil
}

func scanDailyLimit(row pgx.Row) (*domain.DailyLimit, error) {
	var (
		limit domain.DailyLimit
		day   time.Time
	)
	if err := row.Scan(&day, &limit.MaxCustomers, &limit.CurrentCount, &limit.UpdatedAt); err != nil {
		return nil, err
	}
	limit.Day = domain.DayKeyFromDate(day)
	return &limit, nil
}

// pgCustomers implements CustomerRepository
type pgCustomers struct {
	q querier
}

func (r *pgCustomers) FindByMobile(ctx context.Context, mobile string) (*domain.Customer, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.customer.find_by_mobile")
	defer span.End()

	c := &domain.Customer{}
	err := r.q.QueryRow(ctx, `
		SELECT id, name, mobile, created_at FROM customers WHERE mobile = $1
	`, mobile).Scan(&c.ID, &c.Name, &c.Mobile, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrCustomerNotFound
		}
		spanError(span, err)
		return nil, classify("customer.find_by_mobile", err)
	}

	span.SetStatus(codes.Ok, "")
	return c, nil
}

// FindOrCreate is a single upsert so concurrent first joins of one mobile
// resolve to the same row.
func (r *pgCustomers) FindOrCreate(ctx context.Context, in *domain.Customer) (*domain.Customer, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.customer.find_or_create")
	defer span.End()

	c := &domain.Customer{}
	err := r.q.QueryRow(ctx, `
		INSERT INTO customers (id, name, mobile, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (mobile) DO UPDATE SET mobile = EXCLUDED.mobile
		RETURNING id, name, mobile, created_at
	`, in.ID, in.Name, in.Mobile, in.CreatedAt).Scan(&c.ID, &c.Name, &c.Mobile, &c.CreatedAt)
	if err != nil {
		spanError(span, err)
		return nil, classify("customer.find_or_create", err)
	}

	span.SetAttributes(attribute.String("customer_id", c.ID))
	span.SetStatus(codes.Ok, "")
	return c, nil
}

// pgServices implements ServiceRepository
type pgServices struct {
	q querier
}

func (r *pgServices) GetByID(ctx context.Context, id string) (*domain.Service, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.service.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("service_id", id))

	if !isUUID(id) {
		span.SetStatus(codes.Error, "not found")
		return nil, domain.ErrServiceNotFound
	}

	s := &domain.Service{}
	err := r.q.QueryRow(ctx, `
		SELECT id, name, description, price, duration, created_at
		FROM services
		WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.Description, &s.Price, &s.Duration, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrServiceNotFound
		}
		spanError(span, err)
		return nil, classify("service.get_by_id", err)
	}

	span.SetStatus(codes.Ok, "")
	return s, nil
}

func (r *pgServices) List(ctx context.Context) ([]*domain.Service, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.service.list")
	defer span.End()

	rows, err := r.q.Query(ctx, `
		SELECT id, name, description, price, duration, created_at
		FROM services
		ORDER BY name ASC
	`)
	if err != nil {
		spanError(span, err)
		return nil, classify("service.list", err)
	}
	defer rows.Close()

	var services []*domain.Service
	for rows.Next() {
		s := &domain.Service{}
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Price, &s.Duration, &s.CreatedAt); err != nil {
			spanError(span, err)
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		services = append(services, s)
	}
	if err := rows.Err(); err != nil {
		spanError(span, err)
		return nil, classify("service.list", err)
	}

	span.SetAttributes(attribute.Int("count", len(services)))
	span.SetStatus(codes.Ok, "")
	return services, nil
}

func (r *pgServices) Create(ctx context.Context, s *domain.Service) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.service.create")
	defer span.End()

	if err := s.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	_, err := r.q.Exec(ctx, `
		INSERT INTO services (id, name, description, price, duration, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, s.ID, s.Name, s.Description, s.Price, s.Duration, s.CreatedAt)
	if err != nil {
		spanError(span, err)
		return classify("service.create", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// pgEntries implements QueueEntryRepository
type pgEntries struct {
	q querier
}

var entryColumns = []string{
	"e.id", "e.customer_id", "e.service_id", "e.day", "e.queue_number", "e.status",
	"e.estimated_wait_time", "e.check_in_time", "e.start_time", "e.end_time",
	"c.name", "c.mobile",
	"s.name", "s.description", "s.price", "s.duration",
}

func selectEntries() sq.SelectBuilder {
	return psql.Select(entryColumns...).
		From("queue_entries e").
		Join("customers c ON c.id = e.customer_id").
		Join("services s ON s.id = e.service_id")
}

func scanEntry(row pgx.Row) (*domain.QueueEntry, error) {
	var (
		e      domain.QueueEntry
		c      domain.Customer
		s      domain.Service
		day    time.Time
		status string
	)
	err := row.Scan(
		&e.ID, &e.CustomerID, &e.ServiceID, &day, &e.QueueNumber, &status,
		&e.EstimatedWaitTime, &e.CheckInTime, &e.StartTime, &e.EndTime,
		&c.Name, &c.Mobile,
		&s.Name, &s.Description, &s.Price, &s.Duration,
	)
	if err != nil {
		return nil, err
	}

	e.Day = domain.DayKeyFromDate(day)
	e.Status = domain.EntryStatus(status)
	c.ID = e.CustomerID
	s.ID = e.ServiceID
	e.Customer = &c
	e.Service = &s
	return &e, nil
}

func (r *pgEntries) queryOne(ctx context.Context, b sq.SelectBuilder) (*domain.QueueEntry, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	e, err := scanEntry(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEntryNotFound
	}
	return e, err
}

func (r *pgEntries) queryMany(ctx context.Context, b sq.SelectBuilder) ([]*domain.QueueEntry, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*domain.QueueEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *pgEntries) NextNumber(ctx context.Context, day domain.DayKey) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.entry.next_number")
	defer span.End()

	span.SetAttributes(attribute.String("day", day.String()))

	var n int
	err := r.q.QueryRow(ctx, `
		INSERT INTO queue_sequences (day, last_number)
		VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET last_number = queue_sequences.last_number + 1
		RETURNING last_number
	`, day.Date()).Scan(&n)
	if err != nil {
		spanError(span, err)
		return 0, classify("entry.next_number", err)
	}

	span.SetAttributes(attribute.Int("queue_number", n))
	span.SetStatus(codes.Ok, "")
	return n, nil
}

func (r *pgEntries) Create(ctx context.Context, e *domain.QueueEntry) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.entry.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("entry_id", e.ID),
		attribute.String("customer_id", e.CustomerID),
		attribute.Int("queue_number", e.QueueNumber),
	)

	_, err := r.q.Exec(ctx, `
		INSERT INTO queue_entries (
			id, customer_id, service_id, day, queue_number, status,
			estimated_wait_time, check_in_time, start_time, end_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		e.ID, e.CustomerID, e.ServiceID, e.Day.Date(), e.QueueNumber, string(e.Status),
		e.EstimatedWaitTime, e.CheckInTime, e.StartTime, e.EndTime,
	)
	if err != nil {
		if isUniqueViolation(err, activeEntryIndex) {
			span.SetStatus(codes.Error, "already queued")
			return domain.ErrAlreadyQueued
		}
		spanError(span, err)
		return classify("entry.create", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

func (r *pgEntries) GetByID(ctx context.Context, id string) (*domain.QueueEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.entry.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("entry_id", id))

	if !isUUID(id) {
		span.SetStatus(codes.Error, "not found")
		return nil, domain.ErrEntryNotFound
	}

	e, err := r.queryOne(ctx, selectEntries().Where(sq.Eq{"e.id": id}))
	if err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			span.SetStatus(codes.Error, "not found")
			return nil, err
		}
		spanError(span, err)
		return nil, classify("entry.get_by_id", err)
	}

	span.SetStatus(codes.Ok, "")
	return e, nil
}

func (r *pgEntries) FindActiveByCustomer(ctx context.Context, customerID string) (*domain.QueueEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.entry.find_active")
	defer span.End()

	span.SetAttributes(attribute.String("customer_id", customerID))

	e, err := r.queryOne(ctx, selectEntries().
		Where(sq.Eq{
			"e.customer_id": customerID,
			"e.status":      []string{string(domain.StatusWaiting), string(domain.StatusInProgress)},
		}).
		OrderBy("e.check_in_time DESC").
		Limit(1))
	if err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			span.SetStatus(codes.Ok, "no active entry")
			return nil, err
		}
		spanError(span, err)
		return nil, classify("entry.find_active", err)
	}

	span.SetStatus(codes.Ok, "")
	return e, nil
}

func (r *pgEntries) CountWaiting(ctx context.Context, day domain.DayKey) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.entry.count_waiting")
	defer span.End()

	var n int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM queue_entries WHERE day = $1 AND status = $2
	`, day.Date(), string(domain.StatusWaiting)).Scan(&n)
	if err != nil {
		spanError(span, err)
		return 0, classify("entry.count_waiting", err)
	}

	span.SetStatus(codes.Ok, "")
	return n, nil
}

func (r *pgEntries) CountWaitingBefore(ctx context.Context, day domain.DayKey, queueNumber int) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.entry.count_waiting_before")
	defer span.End()

	var n int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM queue_entries
		WHERE day = $1 AND status = $2 AND queue_number < $3
	`, day.Date(), string(domain.StatusWaiting), queueNumber).Scan(&n)
	if err != nil {
		spanError(span, err)
		return 0, classify("entry.count_waiting_before", err)
	}

	span.SetStatus(codes.Ok, "")
	return n, nil
}

func (r *pgEntries) UpdateStatus(ctx context.Context, e *domain.QueueEntry, from domain.EntryStatus) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.entry.update_status")
	defer span.End()

	span.SetAttributes(
		attribute.String("entry_id", e.ID),
		attribute.String("from", string(from)),
		attribute.String("to", string(e.Status)),
	)

	tag, err := r.q.Exec(ctx, `
		UPDATE queue_entries
		SET status = $2, start_time = $3, end_time = $4
		WHERE id = $1 AND status = $5
	`, e.ID, string(e.Status), e.StartTime, e.EndTime, string(from))
	if err != nil {
		spanError(span, err)
		return classify("entry.update_status", err)
	}

	if tag.RowsAffected() == 0 {
		var current string
		err := r.q.QueryRow(ctx, `SELECT status FROM queue_entries WHERE id = $1`, e.ID).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				span.SetStatus(codes.Error, "entry not found")
				return domain.ErrEntryNotFound
			}
			spanError(span, err)
			return classify("entry.update_status", err)
		}
		span.SetStatus(codes.Error, "status changed concurrently")
		return &domain.TransitionError{From: domain.EntryStatus(current), To: e.Status}
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

func (r *pgEntries) List(ctx context.Context, filter EntryFilter) ([]*domain.QueueEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.entry.list")
	defer span.End()

	b := selectEntries().OrderBy("e.day ASC", "e.queue_number ASC")
	if filter.Day != nil {
		b = b.Where(sq.Eq{"e.day": filter.Day.Date()})
	}
	if filter.Status != "" {
		b = b.Where(sq.Eq{"e.status": string(filter.Status)})
	}

	entries, err := r.queryMany(ctx, b)
	if err != nil {
		spanError(span, err)
		return nil, classify("entry.list", err)
	}

	span.SetAttributes(attribute.Int("count", len(entries)))
	span.SetStatus(codes.Ok, "")
	return entries, nil
}

func recordConditions(filter RecordFilter) sq.And {
	cond := sq.And{}
	if filter.Day != nil {
		cond = append(cond, sq.Eq{"e.day": filter.Day.Date()})
	}
	if filter.Since != nil {
		cond = append(cond, sq.GtOrEq{"e.check_in_time": *filter.Since})
	}
	if filter.Status != "" {
		cond = append(cond, sq.Eq{"e.status": string(filter.Status)})
	}
	return cond
}

func (r *pgEntries) ListRecords(ctx context.Context, filter RecordFilter) ([]*domain.QueueEntry, int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.entry.list_records")
	defer span.End()

	cond := recordConditions(filter)

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("queue_entries e").Where(cond).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build query: %w", err)
	}

	var total int
	if err := r.q.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		spanError(span, err)
		return nil, 0, classify("entry.list_records", err)
	}

	b := selectEntries().
		Where(cond).
		OrderBy("e.check_in_time DESC").
		Offset(uint64(filter.Offset))
	if filter.Limit > 0 {
		b = b.Limit(uint64(filter.Limit))
	}

	entries, err := r.queryMany(ctx, b)
	if err != nil {
		spanError(span, err)
		return nil, 0, classify("entry.list_records", err)
	}

	span.SetAttributes(attribute.Int("total", total), attribute.Int("count", len(entries)))
	span.SetStatus(codes.Ok, "")
	return entries, total, nil
}

func (r *pgEntries) CountByStatus(ctx context.Context, day domain.DayKey) (map[domain.EntryStatus]int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.entry.count_by_status")
	defer span.End()

	query, args, err := psql.Select("status", "COUNT(*)").
		From("queue_entries").
		Where(sq.Eq{"day": day.Date()}).
		GroupBy("status").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		spanError(span, err)
		return nil, classify("entry.count_by_status", err)
	}
	defer rows.Close()

	counts := make(map[domain.EntryStatus]int, 4)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			spanError(span, err)
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[domain.EntryStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		spanError(span, err)
		return nil, classify("entry.count_by_status", err)
	}

	span.SetStatus(codes.Ok, "")
	return counts, nil
}

func (r *pgEntries) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.entry.delete_older_than")
	defer span.End()

	span.SetAttributes(attribute.String("cutoff", cutoff.Format(time.RFC3339)))

	tag, err := r.q.Exec(ctx, `DELETE FROM queue_entries WHERE check_in_time < $1`, cutoff)
	if err != nil {
		spanError(span, err)
		return 0, classify("entry.delete_older_than", err)
	}

	span.SetAttributes(attribute.Int64("deleted", tag.RowsAffected()))
	span.SetStatus(codes.Ok, "")
	return tag.RowsAffected(), nil
}
