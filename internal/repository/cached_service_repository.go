package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/prohmpiriya/queueme/internal/domain"
	"github.com/prohmpiriya/queueme/pkg/logger"
	"github.com/prohmpiriya/queueme/pkg/telemetry"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	serviceListCacheKey = "services:all"
	serviceCachePrefix  = "services:id:"
)

// CacheClient is the subset of Redis used by the catalog cache
type CacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedServiceRepository is a read-through Redis cache over the catalog.
// Cache failures fall back to the underlying repository. Concurrent misses
// on one key share a single load.
type CachedServiceRepository struct {
	next  ServiceRepository
	cache CacheClient
	ttl   time.Duration
	log   *logger.Logger
	group singleflight.Group
}

var _ ServiceRepository = (*CachedServiceRepository)(nil)

// NewCachedServiceRepository wraps next with a cache
func NewCachedServiceRepository(next ServiceRepository, cache CacheClient, ttl time.Duration) *CachedServiceRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedServiceRepository{next: next, cache: cache, ttl: ttl, log: logger.Get()}
}

func (r *CachedServiceRepository) GetByID(ctx context.Context, id string) (*domain.Service, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.cache.service.get_by_id")
	defer span.End()

	key := serviceCachePrefix + id
	var cached domain.Service
	if r.load(ctx, key, &cached) {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return &cached, nil
	}
	span.SetAttributes(attribute.Bool("cache_hit", false))

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		svc, err := r.next.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		r.store(ctx, key, svc)
		return svc, nil
	})
	if err != nil {
		return nil, err
	}
	svc := *v.(*domain.Service)
	return &svc, nil
}

func (r *CachedServiceRepository) List(ctx context.Context) ([]*domain.Service, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.cache.service.list")
	defer span.End()

	var cached []*domain.Service
	if r.load(ctx, serviceListCacheKey, &cached) {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return cached, nil
	}
	span.SetAttributes(attribute.Bool("cache_hit", false))

	v, err, _ := r.group.Do(serviceListCacheKey, func() (interface{}, error) {
		services, err := r.next.List(ctx)
		if err != nil {
			return nil, err
		}
		r.store(ctx, serviceListCacheKey, services)
		return services, nil
	})
	if err != nil {
		return nil, err
	}
	shared := v.([]*domain.Service)
	services := make([]*domain.Service, len(shared))
	for i, svc := range shared {
		c := *svc
		services[i] = &c
	}
	return services, nil
}

// Create writes through and drops the cached list
func (r *CachedServiceRepository) Create(ctx context.Context, s *domain.Service) error {
	if err := r.next.Create(ctx, s); err != nil {
		return err
	}
	if err := r.cache.Del(ctx, serviceListCacheKey).Err(); err != nil {
		r.log.Warn("Failed to invalidate service cache", zap.Error(err))
	}
	return nil
}

func (r *CachedServiceRepository) load(ctx context.Context, key string, out interface{}) bool {
	raw, err := r.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("Service cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		r.log.Warn("Discarding corrupt service cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (r *CachedServiceRepository) store(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.log.Warn("Service cache write failed", zap.String("key", key), zap.Error(err))
	}
}
