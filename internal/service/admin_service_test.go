package service

import (
	"context"
	"testing"
	"time"

	"github.com/prohmpiriya/queueme/internal/domain"
	"github.com/prohmpiriya/queueme/internal/dto"
	"github.com/prohmpiriya/queueme/internal/repository"
	"github.com/prohmpiriya/queueme/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminUpdateStatus_Lifecycle(t *testing.T) {
	env := newTestEnv(t, 10)
	ctx := context.Background()

	env.join(t, "Alice", "0811111111")
	entry := env.entryOf(t, "0811111111")

	env.clock.Advance(10 * time.Minute)
	resp, err := env.admin.UpdateStatus(ctx, entry.ID, &dto.UpdateStatusRequest{Status: "in-progress"})
	require.NoError(t, err)
	assert.Equal(t, "Queue status updated successfully", resp.Message)
	assert.Equal(t, domain.StatusInProgress, resp.Queue.Status)
	require.NotNil(t, resp.Queue.StartTime)

	ready := env.notifier.Last()
	require.NotNil(t, ready)
	assert.Equal(t, domain.NotificationReady, ready.Kind)
	assert.Equal(t, "Hi Alice, the barber is ready for you. Please proceed to the barber station.", ready.Message)

	env.clock.Advance(30 * time.Minute)
	resp, err = env.admin.UpdateStatus(ctx, entry.ID, &dto.UpdateStatusRequest{Status: "completed"})
	require.NoError(t, err)
	require.NotNil(t, resp.Queue.EndTime)
	assert.True(t, resp.Queue.CheckInTime.Before(*resp.Queue.StartTime))
	assert.True(t, resp.Queue.StartTime.Before(*resp.Queue.EndTime))

	_, err = env.admin.UpdateStatus(ctx, entry.ID, &dto.UpdateStatusRequest{Status: "completed"})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	var terr *domain.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, domain.StatusCompleted, terr.From)
	assert.Equal(t, domain.StatusCompleted, terr.To)

	assert.Equal(t, []domain.NotificationKind{domain.NotificationJoined, domain.NotificationReady}, env.notifier.Kinds())
}

func TestAdminUpdateStatus_Rejections(t *testing.T) {
	env := newTestEnv(t, 10)
	ctx := context.Background()

	env.join(t, "Alice", "0811111111")
	entry := env.entryOf(t, "0811111111")

	_, err := env.admin.UpdateStatus(ctx, entry.ID, &dto.UpdateStatusRequest{Status: "completed"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = env.admin.UpdateStatus(ctx, entry.ID, &dto.UpdateStatusRequest{Status: "done"})
	assert.True(t, domain.IsValidationError(err))

	_, err = env.admin.UpdateStatus(ctx, "missing", &dto.UpdateStatusRequest{Status: "cancelled"})
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)
}

func TestAdminUpdateStatus_CancelNotification(t *testing.T) {
	tests := []struct {
		name   string
		notify bool
		want   []domain.NotificationKind
	}{
		{"enabled", true, []domain.NotificationKind{domain.NotificationJoined, domain.NotificationCancelled}},
		{"disabled", false, []domain.NotificationKind{domain.NotificationJoined}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, 10)
			env.admin = NewAdminService(env.store, env.notifier, &AdminServiceConfig{
				NotifyAdminCancel: tt.notify,
				Clock:             env.clock,
				Logger:            logger.NewNop(),
			})

			env.join(t, "Alice", "0811111111")
			entry := env.entryOf(t, "0811111111")

			_, err := env.admin.UpdateStatus(context.Background(), entry.ID, &dto.UpdateStatusRequest{Status: "cancelled"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, env.notifier.Kinds())
		})
	}
}

func TestAdminListQueue(t *testing.T) {
	env := newTestEnv(t, 10)
	ctx := context.Background()

	env.join(t, "Alice", "0811111111")
	env.join(t, "Bob", "0822222222")
	first := env.entryOf(t, "0811111111")
	_, err := env.admin.UpdateStatus(ctx, first.ID, &dto.UpdateStatusRequest{Status: "in-progress"})
	require.NoError(t, err)

	env.clock.Advance(24 * time.Hour)
	env.join(t, "Carol", "0833333333")

	today, err := env.admin.ListQueue(ctx, &dto.ListQueueRequest{Day: "today"})
	require.NoError(t, err)
	require.Len(t, today, 1)
	assert.Equal(t, "Carol", today[0].Customer.Name)

	all, err := env.admin.ListQueue(ctx, &dto.ListQueueRequest{Status: "all"})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	yesterday, err := env.admin.ListQueue(ctx, &dto.ListQueueRequest{Day: "2024-03-10", Status: "waiting"})
	require.NoError(t, err)
	require.Len(t, yesterday, 1)
	assert.Equal(t, 2, yesterday[0].QueueNumber)

	_, err = env.admin.ListQueue(ctx, &dto.ListQueueRequest{Day: "10/03/2024"})
	assert.True(t, domain.IsValidationError(err))
}

func TestAdminStats(t *testing.T) {
	env := newTestEnv(t, 10)
	ctx := context.Background()

	env.join(t, "Alice", "0811111111")
	env.join(t, "Bob", "0822222222")
	env.join(t, "Carol", "0833333333")

	_, err := env.queue.CancelQueue(ctx, "0833333333")
	require.NoError(t, err)
	first := env.entryOf(t, "0811111111")
	_, err = env.admin.UpdateStatus(ctx, first.ID, &dto.UpdateStatusRequest{Status: "in-progress"})
	require.NoError(t, err)

	stats, err := env.admin.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &dto.StatsResponse{
		Date:         domain.DayKey("2024-03-10"),
		Waiting:      1,
		InProgress:   1,
		Completed:    0,
		Cancelled:    1,
		Total:        3,
		MaxCustomers: 10,
		CurrentCount: 3,
	}, stats)
}

func TestAdminRecords(t *testing.T) {
	env := newTestEnv(t, 10)
	ctx := context.Background()

	env.join(t, "Alice", "0811111111")
	_, err := env.queue.CancelQueue(ctx, "0811111111")
	require.NoError(t, err)

	env.clock.Advance(10 * 24 * time.Hour)
	for _, mobile := range []string{"0822222222", "0833333333", "0844444444"} {
		env.clock.Advance(time.Minute)
		env.join(t, "Customer", mobile)
	}

	page, err := env.admin.Records(ctx, &dto.RecordsRequest{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 1, page.CurrentPage)
	require.Len(t, page.Records, 2)
	assert.Equal(t, "0844444444", page.Records[0].Customer.Mobile)

	week, err := env.admin.Records(ctx, &dto.RecordsRequest{Period: "week"})
	require.NoError(t, err)
	assert.Equal(t, 3, week.Total)

	cancelled, err := env.admin.Records(ctx, &dto.RecordsRequest{Period: "month", Status: "cancelled"})
	require.NoError(t, err)
	assert.Equal(t, 1, cancelled.Total)

	today, err := env.admin.Records(ctx, &dto.RecordsRequest{Period: "today"})
	require.NoError(t, err)
	assert.Equal(t, 3, today.Total)
	assert.Equal(t, 1, today.TotalPages)

	_, err = env.admin.Records(ctx, &dto.RecordsRequest{Period: "year"})
	assert.True(t, domain.IsValidationError(err))

	_, err = env.admin.Records(ctx, &dto.RecordsRequest{Page: 1e18, Limit: 10})
	assert.True(t, domain.IsValidationError(err))

	past, err := env.admin.Records(ctx, &dto.RecordsRequest{Page: 50, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, past.Records)
	assert.Equal(t, 4, past.Total)
}

func TestAdminPurgeRecords(t *testing.T) {
	env := newTestEnv(t, 10)
	ctx := context.Background()

	env.join(t, "Alice", "0811111111")
	env.clock.Advance(40 * 24 * time.Hour)
	env.join(t, "Bob", "0822222222")

	resp, err := env.admin.PurgeRecords(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Deleted)
	assert.Equal(t, "Deleted 1 records older than 30 days", resp.Message)

	remaining, err := env.store.Entries().List(ctx, repository.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "Bob", remaining[0].Customer.Name)

	_, err = env.admin.PurgeRecords(ctx, -1)
	assert.True(t, domain.IsValidationError(err))
}

func TestAdminPurgeRecords_LongHorizonKeepsToday(t *testing.T) {
	env := newTestEnv(t, 10)
	ctx := context.Background()

	env.join(t, "Alice", "0811111111")
	env.join(t, "Bob", "0822222222")

	for _, days := range []int{200000, 1 << 40} {
		resp, err := env.admin.PurgeRecords(ctx, days)
		require.NoError(t, err)
		assert.Equal(t, int64(0), resp.Deleted)
	}

	remaining, err := env.store.Entries().List(ctx, repository.EntryFilter{})
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}

func TestAdminSetDailyLimit(t *testing.T) {
	env := newTestEnv(t, 10)
	ctx := context.Background()

	env.join(t, "Alice", "0811111111")

	resp, err := env.admin.SetDailyLimit(ctx, &dto.DailyLimitRequest{MaxCustomers: 1})
	require.NoError(t, err)
	assert.Equal(t, "Daily limit updated successfully", resp.Message)
	assert.Equal(t, 1, resp.DailyLimit.MaxCustomers)
	assert.Equal(t, 1, resp.DailyLimit.CurrentCount)

	_, err = env.queue.JoinQueue(ctx, &dto.JoinQueueRequest{Name: "Bob", Mobile: "0822222222", ServiceID: testServiceID})
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)

	_, err = env.admin.SetDailyLimit(ctx, &dto.DailyLimitRequest{MaxCustomers: 0})
	assert.True(t, domain.IsValidationError(err))
}

func TestCatalogListServices(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Services().Create(ctx, &domain.Service{ID: "b", Name: "Shave", Price: 10, Duration: 15}))
	require.NoError(t, store.Services().Create(ctx, &domain.Service{ID: "a", Name: "Beard Trim", Price: 8, Duration: 10}))

	services, err := NewCatalogService(store.Services()).ListServices(ctx)
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, "Beard Trim", services[0].Name)

	empty, err := NewCatalogService(repository.NewMemoryStore().Services()).ListServices(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
