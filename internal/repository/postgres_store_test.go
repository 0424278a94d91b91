package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/queueme/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipIfNoIntegration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getPostgresStore connects to the test database and resets its tables
func getPostgresStore(t *testing.T) *PostgresStore {
	skipIfNoIntegration(t)

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		getEnv("TEST_POSTGRES_USER", "postgres"),
		getEnv("TEST_POSTGRES_PASSWORD", "postgres"),
		getEnv("TEST_POSTGRES_HOST", "localhost"),
		getEnv("TEST_POSTGRES_PORT", "5432"),
		getEnv("TEST_POSTGRES_DB", "queueme_test"),
	)

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(ctx))
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE queue_entries, customers, services, daily_limits, queue_sequences`)
	require.NoError(t, err)

	return NewPostgresStore(pool)
}

func TestPostgresStore_ConcurrentReservations(t *testing.T) {
	s := getPostgresStore(t)
	ctx := context.Background()
	day := domain.DayKey(time.Now().UTC().Format("2006-01-02"))

	_, err := s.DailyLimits().GetOrCreate(ctx, day, 5)
	require.NoError(t, err)

	const n = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		numbers   = map[int]bool{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithinTx(ctx, func(tx Store) error {
				if _, err := tx.DailyLimits().TryReserveSlot(ctx, day); err != nil {
					return err
				}
				num, err := tx.Entries().NextNumber(ctx, day)
				if err != nil {
					return err
				}
				mu.Lock()
				numbers[num] = true
				mu.Unlock()
				return nil
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	for i := 1; i <= 5; i++ {
		assert.True(t, numbers[i], "number %d should be assigned", i)
	}

	limit, err := s.DailyLimits().GetOrCreate(ctx, day, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, limit.CurrentCount)
}

func TestPostgresStore_EntryLifecycle(t *testing.T) {
	s := getPostgresStore(t)
	ctx := context.Background()
	day := domain.DayKey("2026-03-01")
	now := time.Now().UTC().Truncate(time.Microsecond)

	svc := &domain.Service{ID: uuid.NewString(), Name: "Haircut", Price: 25, Duration: 30, CreatedAt: now}
	require.NoError(t, s.Services().Create(ctx, svc))

	c, err := s.Customers().FindOrCreate(ctx, &domain.Customer{ID: uuid.NewString(), Name: "Ann", Mobile: "0811111111", CreatedAt: now})
	require.NoError(t, err)
	again, err := s.Customers().FindOrCreate(ctx, &domain.Customer{ID: uuid.NewString(), Name: "Ann", Mobile: "0811111111", CreatedAt: now})
	require.NoError(t, err)
	assert.Equal(t, c.ID, again.ID)

	e := domain.NewQueueEntry(uuid.NewString(), c.ID, svc.ID, day, 1, 0, now)
	require.NoError(t, s.Entries().Create(ctx, e))

	dup := domain.NewQueueEntry(uuid.NewString(), c.ID, svc.ID, day, 2, 15, now)
	assert.ErrorIs(t, s.Entries().Create(ctx, dup), domain.ErrAlreadyQueued)

	active, err := s.Entries().FindActiveByCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, active.ID)
	assert.Equal(t, day, active.Day)
	assert.Equal(t, "Haircut", active.Service.Name)
	assert.Equal(t, 25.0, active.Service.Price)

	require.NoError(t, active.Transition(domain.StatusInProgress, now.Add(time.Minute)))
	require.NoError(t, s.Entries().UpdateStatus(ctx, active, domain.StatusWaiting))
	err = s.Entries().UpdateStatus(ctx, active, domain.StatusWaiting)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	var terr *domain.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, domain.StatusInProgress, terr.From)
	assert.Equal(t, domain.StatusInProgress, terr.To)

	got, err := s.Entries().GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, got.Status)
	require.NotNil(t, got.StartTime)

	_, err = s.Entries().GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)
	_, err = s.Services().GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrServiceNotFound)

	counts, err := s.Entries().CountByStatus(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[domain.StatusInProgress])

	records, total, err := s.Entries().ListRecords(ctx, RecordFilter{Status: domain.StatusInProgress, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, records, 1)

	deleted, err := s.Entries().DeleteOlderThan(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
