package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prohmpiriya/queueme/internal/domain"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockServiceRepository struct {
	mock.Mock
}

func (m *MockServiceRepository) GetByID(ctx context.Context, id string) (*domain.Service, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Service), args.Error(1)
}

func (m *MockServiceRepository) List(ctx context.Context) ([]*domain.Service, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Service), args.Error(1)
}

func (m *MockServiceRepository) Create(ctx context.Context, s *domain.Service) error {
	return m.Called(ctx, s).Error(0)
}

func newCache(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

func TestCachedServiceRepository_ListReadThrough(t *testing.T) {
	rdb, mr := newCache(t)
	next := new(MockServiceRepository)
	services := []*domain.Service{{ID: uuid.NewString(), Name: "Haircut", Price: 25, Duration: 30}}
	next.On("List", mock.Anything).Return(services, nil).Once()

	repo := NewCachedServiceRepository(next, rdb, time.Minute)

	first, err := repo.List(context.Background())
	require.NoError(t, err)
	second, err := repo.List(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, mr.Exists(serviceListCacheKey))
	next.AssertExpectations(t)
}

func TestCachedServiceRepository_GetByIDNotFoundIsNotCached(t *testing.T) {
	rdb, mr := newCache(t)
	next := new(MockServiceRepository)
	next.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrServiceNotFound).Twice()

	repo := NewCachedServiceRepository(next, rdb, time.Minute)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrServiceNotFound)
	_, err = repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrServiceNotFound)

	assert.False(t, mr.Exists(serviceCachePrefix+"missing"))
	next.AssertExpectations(t)
}

func TestCachedServiceRepository_CreateInvalidatesList(t *testing.T) {
	rdb, mr := newCache(t)
	next := new(MockServiceRepository)
	svc := &domain.Service{ID: uuid.NewString(), Name: "Shave", Price: 30, Duration: 30}
	next.On("List", mock.Anything).Return([]*domain.Service{}, nil).Once()
	next.On("Create", mock.Anything, svc).Return(nil).Once()

	repo := NewCachedServiceRepository(next, rdb, time.Minute)
	_, err := repo.List(context.Background())
	require.NoError(t, err)
	require.True(t, mr.Exists(serviceListCacheKey))

	require.NoError(t, repo.Create(context.Background(), svc))
	assert.False(t, mr.Exists(serviceListCacheKey))
}

func TestCachedServiceRepository_RedisDownFallsBack(t *testing.T) {
	rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	next := new(MockServiceRepository)
	svc := &domain.Service{ID: "svc-1", Name: "Haircut", Duration: 30}
	next.On("GetByID", mock.Anything, "svc-1").Return(svc, nil)

	repo := NewCachedServiceRepository(next, rdb, time.Minute)
	got, err := repo.GetByID(context.Background(), "svc-1")
	require.NoError(t, err)
	assert.Equal(t, svc, got)
}
