package middleware

import (
	"context"
	_ "embed"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/queueme/pkg/logger"
	"github.com/prohmpiriya/queueme/pkg/response"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

//go:embed token_bucket.lua
var tokenBucketScript string

const tokenBucketScriptName = "token_bucket"

// ScriptRunner evaluates a cached Lua script
type ScriptRunner interface {
	EvalWithFallback(ctx context.Context, name, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RateLimitConfig configures the Redis token bucket
type RateLimitConfig struct {
	Redis          ScriptRunner
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
	// KeyFunc picks the bucket for a request, the client IP by default
	KeyFunc func(*gin.Context) string
	Logger  *logger.Logger
	Now     func() time.Time
}

type bucketResult struct {
	allowed      bool
	remaining    int64
	retryAfterMs int64
}

// RateLimit limits requests per bucket with a token bucket kept in Redis.
// Redis failures let the request through.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Redis == nil {
		return func(c *gin.Context) { c.Next() }
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = 30
	}
	if cfg.RefillTokens <= 0 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = 2 * time.Second
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "rl"
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Get()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	limit := strconv.Itoa(cfg.Capacity)

	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", cfg.Prefix, cfg.KeyFunc(c))

		res, err := takeToken(c.Request.Context(), cfg, key)
		if err != nil {
			cfg.Logger.Warn("Rate limiter unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", limit)
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(res.remaining, 10))

		if !res.allowed {
			secs := int(math.Ceil(float64(res.retryAfterMs) / 1000.0))
			c.Header("Retry-After", strconv.Itoa(secs))
			response.Abort(c, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
			return
		}

		c.Next()
	}
}

func takeToken(ctx context.Context, cfg RateLimitConfig, key string) (*bucketResult, error) {
	vals, err := cfg.Redis.EvalWithFallback(ctx, tokenBucketScriptName, tokenBucketScript, []string{key},
		cfg.Now().UnixMilli(),
		cfg.Capacity,
		cfg.RefillTokens,
		cfg.RefillInterval.Milliseconds(),
		int64(cfg.TTL/time.Second),
	).Int64Slice()
	if err != nil {
		return nil, err
	}
	if len(vals) != 3 {
		return nil, fmt.Errorf("unexpected token bucket result: %v", vals)
	}
	return &bucketResult{
		allowed:      vals[0] == 1,
		remaining:    vals[1],
		retryAfterMs: vals[2],
	}, nil
}
