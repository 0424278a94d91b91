package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prohmpiriya/queueme/internal/di"
	"github.com/prohmpiriya/queueme/internal/metrics"
	"github.com/prohmpiriya/queueme/pkg/config"
	"github.com/prohmpiriya/queueme/pkg/logger"
	"github.com/prohmpiriya/queueme/pkg/telemetry"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(&logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: "queueme-notification-worker",
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Notification Worker...",
		zap.String("transport", cfg.Notification.Transport),
		zap.String("sender", cfg.Notification.Sender),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    "queueme-notification-worker",
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		appLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() { _ = telemetry.Shutdown(context.Background()) }()

	if err := metrics.Init(); err != nil {
		appLog.Fatal("Failed to register metrics", zap.Error(err))
	}

	run, err := di.NewNotificationRunner(ctx, cfg, appLog)
	if err != nil {
		appLog.Fatal("Failed to start notification consumer", zap.Error(err))
	}

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		appLog.Error("Notification worker stopped with error", zap.Error(err))
		return
	}
	appLog.Info("Notification worker stopped")
}
