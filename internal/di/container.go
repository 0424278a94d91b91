package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/queueme/internal/domain"
	"github.com/prohmpiriya/queueme/internal/handler"
	"github.com/prohmpiriya/queueme/internal/notification"
	"github.com/prohmpiriya/queueme/internal/repository"
	"github.com/prohmpiriya/queueme/internal/router"
	"github.com/prohmpiriya/queueme/internal/service"
	"github.com/prohmpiriya/queueme/internal/worker"
	"github.com/prohmpiriya/queueme/pkg/config"
	"github.com/prohmpiriya/queueme/pkg/database"
	"github.com/prohmpiriya/queueme/pkg/kafka"
	"github.com/prohmpiriya/queueme/pkg/logger"
	"github.com/prohmpiriya/queueme/pkg/middleware"
	pkgredis "github.com/prohmpiriya/queueme/pkg/redis"
	"github.com/prohmpiriya/queueme/pkg/retry"
	"go.uber.org/zap"
)

// Runner is a background loop owned by the container
type Runner func(ctx context.Context) error

// Container holds all dependencies of the queue service
type Container struct {
	Config *config.Config
	Log    *logger.Logger
	Clock  domain.Clock

	// Infrastructure
	DB    *database.PostgresDB
	Redis *pkgredis.Client
	Store repository.Store

	// Notifications
	Publisher  notification.Publisher
	Dispatcher *notification.Dispatcher

	// Services
	QueueService   service.QueueService
	AdminService   service.AdminService
	CatalogService service.CatalogService

	// HTTP
	Router *gin.Engine

	// Background loops launched by Start
	Runners []Runner

	closers []func()
}

// NewContainer connects infrastructure and builds the object graph
func NewContainer(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	if log == nil {
		log = logger.Get()
	}
	c := &Container{
		Config: cfg,
		Log:    log,
		Clock:  domain.NewSystemClock(cfg.Location()),
	}

	if err := c.initStore(ctx); err != nil {
		c.Close(ctx)
		return nil, err
	}
	c.initRedis(ctx)
	if err := c.initNotifications(ctx); err != nil {
		c.Close(ctx)
		return nil, err
	}
	c.initServices()
	c.initRouter()

	if cfg.Queue.PurgeInterval > 0 {
		purge := worker.NewPurgeWorker(c.AdminService, cfg.Queue.PurgeInterval, log)
		c.Runners = append(c.Runners, func(ctx context.Context) error {
			purge.Run(ctx)
			return nil
		})
	}

	return c, nil
}

func (c *Container) initStore(ctx context.Context) error {
	cfg := c.Config

	if cfg.Store.Driver == "memory" {
		c.Store = repository.NewMemoryStore()
		c.Log.Warn("Using in-memory store; data is lost on restart")
	} else {
		db, err := database.NewPostgres(ctx, &database.PostgresConfig{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Database:        cfg.Database.DBName,
			SSLMode:         cfg.Database.SSLMode,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.ConnMaxLifetime,
			MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
			ConnectTimeout:  5 * time.Second,
			MaxRetries:      3,
			RetryInterval:   time.Second,
			EnableTracing:   cfg.Database.EnableTracing,
		})
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		c.DB = db
		c.closers = append(c.closers, db.Close)
		c.Log.Info("Database connected",
			zap.Int32("min_conns", cfg.Database.MinConns),
			zap.Int32("max_conns", cfg.Database.MaxConns),
		)

		if cfg.Store.AutoMigrate {
			if err := repository.Migrate(ctx, db.Pool()); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			c.Log.Info("Database schema migrated")
		}
		c.Store = repository.NewPostgresStore(db.Pool())
	}

	if cfg.Store.SeedServices {
		n, err := repository.SeedServices(ctx, c.Store)
		if err != nil {
			return fmt.Errorf("seeding services failed: %w", err)
		}
		if n > 0 {
			c.Log.Info("Seeded default services", zap.Int("count", n))
		}
	}
	return nil
}

// initRedis connects the optional cache. The service keeps working without
// it, minus rate limiting, idempotency and the catalog cache.
func (c *Container) initRedis(ctx context.Context) {
	cfg := c.Config
	if !cfg.Redis.Enabled {
		return
	}

	client, err := pkgredis.NewClient(ctx, &pkgredis.Config{
		Host:          cfg.Redis.Host,
		Port:          cfg.Redis.Port,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		PoolSize:      cfg.Redis.PoolSize,
		MinIdleConns:  cfg.Redis.MinIdleConns,
		DialTimeout:   cfg.Redis.DialTimeout,
		ReadTimeout:   cfg.Redis.ReadTimeout,
		WriteTimeout:  cfg.Redis.WriteTimeout,
		MaxRetries:    3,
		RetryInterval: 100 * time.Millisecond,
	})
	if err != nil {
		c.Log.Warn("Redis unavailable, continuing without cache", zap.Error(err))
		return
	}
	c.Redis = client
	c.closers = append(c.closers, func() { _ = client.Close() })
	c.Log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
}

func (c *Container) initNotifications(ctx context.Context) error {
	cfg := c.Config
	retryCfg := notification.RetryConfig{
		MaxRetries:    cfg.Notification.MaxRetries,
		RetryInterval: cfg.Notification.RetryInterval,
	}

	switch cfg.Notification.Transport {
	case "kafka":
		pub, err := notification.NewKafkaPublisher(ctx, &notification.KafkaPublisherConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Kafka.NotificationTopic,
			ServiceName: cfg.App.Name,
			ClientID:    cfg.Kafka.ClientID,
		})
		if err != nil {
			return fmt.Errorf("kafka publisher: %w", err)
		}
		c.Publisher = pub
	case "rabbitmq":
		pub, err := notification.NewAMQPPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.NotificationQueue)
		if err != nil {
			return fmt.Errorf("rabbitmq publisher: %w", err)
		}
		c.Publisher = pub
	default:
		sender := notification.NewSender(cfg.Notification.Sender, c.Log)
		c.Publisher = notification.NewDirectPublisher(sender, retryCfg)
	}
	c.closers = append(c.closers, func() { _ = c.Publisher.Close() })

	c.Dispatcher = notification.NewDispatcher(c.Publisher, notification.DispatcherConfig{
		Workers:     cfg.Notification.Workers,
		BufferSize:  cfg.Notification.BufferSize,
		SendTimeout: cfg.Notification.SendTimeout,
	}, c.Log)
	c.Log.Info("Notification transport ready", zap.String("transport", cfg.Notification.Transport))

	if cfg.Notification.Transport != "inprocess" && cfg.Notification.WorkerEnabled {
		run, err := NewNotificationRunner(ctx, cfg, c.Log)
		if err != nil {
			return err
		}
		c.Runners = append(c.Runners, run)
	}
	return nil
}

// NewNotificationRunner builds the broker consumer that delivers queued
// notifications through the configured sender
func NewNotificationRunner(ctx context.Context, cfg *config.Config, log *logger.Logger) (Runner, error) {
	sink := notification.NewDirectPublisher(
		notification.NewSender(cfg.Notification.Sender, log),
		notification.RetryConfig{
			MaxRetries:    cfg.Notification.MaxRetries,
			RetryInterval: cfg.Notification.RetryInterval,
		},
	)
	dlqConfig := &retry.DLQConfig{
		TopicSuffix: cfg.Notification.DLQSuffix,
		Source:      cfg.App.Name + "-notification-worker",
	}
	if dlqConfig.TopicSuffix == "" {
		dlqConfig.TopicSuffix = retry.DefaultDLQConfig().TopicSuffix
	}

	switch cfg.Notification.Transport {
	case "kafka":
		consumer, err := kafka.NewConsumer(ctx, &kafka.ConsumerConfig{
			Brokers:  cfg.Kafka.Brokers,
			GroupID:  cfg.Kafka.ConsumerGroup,
			Topics:   []string{cfg.Kafka.NotificationTopic},
			ClientID: cfg.Kafka.ClientID + "-consumer",
		})
		if err != nil {
			return nil, fmt.Errorf("kafka consumer: %w", err)
		}

		var (
			dlq      retry.DLQPublisher
			producer *kafka.Producer
		)
		if cfg.Notification.DLQEnabled {
			producer, err = kafka.NewProducer(ctx, &kafka.ProducerConfig{
				Brokers:  cfg.Kafka.Brokers,
				ClientID: cfg.Kafka.ClientID + "-dlq",
			})
			if err != nil {
				consumer.Close()
				return nil, fmt.Errorf("kafka dlq producer: %w", err)
			}
			dlq = retry.NewBrokerDLQPublisher(producer, dlqConfig)
		}

		w := worker.NewKafkaWorker(consumer, worker.NewNotificationHandler(sink, dlq, log), log)
		return func(ctx context.Context) error {
			defer consumer.Close()
			if producer != nil {
				defer producer.Close()
			}
			return w.Run(ctx)
		}, nil
	case "rabbitmq":
		var (
			dlq    retry.DLQPublisher
			parker *notification.AMQPPublisher
		)
		if cfg.Notification.DLQEnabled {
			var err error
			// declares the dead letter queue next to the notification queue
			parker, err = notification.NewAMQPPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.NotificationQueue+dlqConfig.TopicSuffix)
			if err != nil {
				return nil, fmt.Errorf("rabbitmq dlq: %w", err)
			}
			dlq = retry.NewBrokerDLQPublisher(parker, dlqConfig)
		}

		dial := worker.DialAMQP(cfg.RabbitMQ.URL, cfg.RabbitMQ.NotificationQueue, cfg.RabbitMQ.Prefetch)
		w := worker.NewAMQPWorker(dial, worker.NewNotificationHandler(sink, dlq, log), log)
		return func(ctx context.Context) error {
			if parker != nil {
				defer parker.Close()
			}
			return w.Run(ctx)
		}, nil
	default:
		return nil, fmt.Errorf("transport %q has no consumer", cfg.Notification.Transport)
	}
}

func (c *Container) initServices() {
	cfg := c.Config
	templates := domain.DefaultTemplates()

	c.QueueService = service.NewQueueService(c.Store, c.Dispatcher, &service.QueueServiceConfig{
		DefaultDailyLimit:  cfg.Queue.DefaultDailyLimit,
		MinutesPerCustomer: cfg.Queue.MinutesPerCustomer,
		Templates:          &templates,
		Clock:              c.Clock,
		Logger:             c.Log,
	})
	c.AdminService = service.NewAdminService(c.Store, c.Dispatcher, &service.AdminServiceConfig{
		DefaultDailyLimit:    cfg.Queue.DefaultDailyLimit,
		DefaultRetentionDays: cfg.Queue.DefaultRetentionDays,
		NotifyAdminCancel:    cfg.Notification.NotifyAdminCancel,
		Templates:            &templates,
		Clock:                c.Clock,
		Logger:               c.Log,
	})

	var services repository.ServiceRepository = c.Store.Services()
	if c.Redis != nil {
		services = repository.NewCachedServiceRepository(services, c.Redis, cfg.Redis.ServiceTTL)
	}
	c.CatalogService = service.NewCatalogService(services)
}

func (c *Container) initRouter() {
	cfg := c.Config

	components := map[string]handler.Pinger{"store": c.Store, "redis": nil}
	if c.Redis != nil {
		components["redis"] = c.Redis
	}

	rcfg := &router.Config{
		ServiceName:    cfg.App.Name,
		Logger:         c.Log,
		QueueHandler:   handler.NewQueueHandler(c.QueueService),
		CatalogHandler: handler.NewCatalogHandler(c.CatalogService),
		AdminHandler:   handler.NewAdminHandler(c.AdminService),
		HealthHandler:  handler.NewHealthHandler(components),
		JWT:            middleware.JWTConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer},
	}

	if c.Redis != nil {
		if cfg.RateLimit.Enabled {
			rcfg.RateLimit = middleware.RateLimitConfig{
				Redis:          c.Redis,
				Capacity:       cfg.RateLimit.Capacity,
				RefillTokens:   cfg.RateLimit.RefillTokens,
				RefillInterval: cfg.RateLimit.RefillInterval,
				TTL:            cfg.RateLimit.TTL,
				Prefix:         cfg.RateLimit.Prefix,
				Logger:         c.Log,
			}
		}
		if cfg.Idempotency.Enabled {
			rcfg.Idempotency = &middleware.IdempotencyConfig{
				Redis:         c.Redis,
				TTL:           cfg.Idempotency.TTL,
				ProcessingTTL: cfg.Idempotency.ProcessingTTL,
			}
		}
	}

	c.Router = router.New(rcfg)
}

// Start launches the dispatcher and background runners. Runner errors are
// logged; the HTTP API keeps serving.
func (c *Container) Start(ctx context.Context) {
	c.Dispatcher.Start()
	for _, run := range c.Runners {
		go func(run Runner) {
			if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				c.Log.Error("Background worker exited", zap.Error(err))
			}
		}(run)
	}
}

// Close drains pending notifications and releases connections in reverse
// order of acquisition
func (c *Container) Close(ctx context.Context) {
	if c.Dispatcher != nil {
		if err := c.Dispatcher.Stop(ctx); err != nil {
			c.Log.Warn("Notification dispatcher did not drain", zap.Error(err))
		}
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
