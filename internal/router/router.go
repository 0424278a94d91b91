package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/queueme/internal/handler"
	"github.com/prohmpiriya/queueme/internal/metrics"
	"github.com/prohmpiriya/queueme/pkg/logger"
	"github.com/prohmpiriya/queueme/pkg/middleware"
	"github.com/prohmpiriya/queueme/pkg/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// probePaths are neither traced nor access-logged
var probePaths = []string{"/health", "/ready", "/metrics"}

// Config holds everything the router mounts
type Config struct {
	ServiceName string
	Logger      *logger.Logger

	QueueHandler   *handler.QueueHandler
	CatalogHandler *handler.CatalogHandler
	AdminHandler   *handler.AdminHandler
	HealthHandler  *handler.HealthHandler

	JWT middleware.JWTConfig

	// RateLimit throttles the public customer routes when its Redis is set
	RateLimit middleware.RateLimitConfig
	// Idempotency protects POST /join-queue when set
	Idempotency *middleware.IdempotencyConfig
}

// New builds the HTTP router
func New(cfg *Config) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	r := gin.New()
	r.Use(
		middleware.Recovery(log),
		middleware.RequestID(),
		telemetry.TracingMiddleware(cfg.ServiceName, probePaths...),
		metrics.HTTPMiddleware(),
		middleware.Logger(log, probePaths...),
		middleware.CORS(),
	)

	r.GET("/health", cfg.HealthHandler.Health)
	r.GET("/ready", cfg.HealthHandler.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var join []gin.HandlerFunc
	if cfg.Idempotency != nil {
		join = append(join, middleware.Idempotency(cfg.Idempotency))
	}
	throttle := middleware.RateLimit(cfg.RateLimit)

	// Customer routes live under /api/users and, for older clients, at the root
	users := r.Group("/api/users", throttle)
	cfg.QueueHandler.Register(users, join...)
	cfg.QueueHandler.Register(r.Group("", throttle), join...)

	r.GET("/api/services", cfg.CatalogHandler.ListServices)

	admin := r.Group("/api/admin",
		middleware.JWTAuth(cfg.JWT),
		middleware.RequireRole(middleware.RoleAdmin),
	)
	cfg.AdminHandler.Register(admin)

	return r
}
