package notification

import (
	"context"
	"sync"
	"time"

	"github.com/prohmpiriya/queueme/internal/domain"
	"github.com/prohmpiriya/queueme/internal/metrics"
	"github.com/prohmpiriya/queueme/pkg/logger"
	"github.com/prohmpiriya/queueme/pkg/telemetry"
	"go.uber.org/zap"
)

// DispatcherConfig sizes the dispatch pool
type DispatcherConfig struct {
	Workers     int
	BufferSize  int
	SendTimeout time.Duration
}

type job struct {
	n     *domain.Notification
	trace map[string]string
}

// Dispatcher publishes notifications off the request path. Notify never
// blocks: when the buffer is full the notification is dropped and logged.
// Publish failures are logged and counted, never returned to the caller.
type Dispatcher struct {
	publisher   Publisher
	jobs        chan job
	workers     int
	sendTimeout time.Duration
	log         *logger.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher over publisher
func NewDispatcher(publisher Publisher, cfg DispatcherConfig, log *logger.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if log == nil {
		log = logger.Get()
	}
	return &Dispatcher{
		publisher:   publisher,
		jobs:        make(chan job, cfg.BufferSize),
		workers:     cfg.Workers,
		sendTimeout: cfg.SendTimeout,
		log:         log,
	}
}

// Start launches the worker goroutines
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	d.log.Info("Notification dispatcher started", zap.Int("workers", d.workers), zap.Int("buffer", cap(d.jobs)))
}

// Notify queues n for publishing. The request context only contributes its
// trace; its cancellation does not abort the delivery.
func (d *Dispatcher) Notify(ctx context.Context, n *domain.Notification) {
	headers := make(map[string]string)
	telemetry.InjectMap(ctx, headers)

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(n, "dispatcher stopped")
		return
	}

	select {
	case d.jobs <- job{n: n, trace: headers}:
		metrics.RecordNotification(metrics.NotificationQueued)
		metrics.NotificationQueueDepth.Set(float64(len(d.jobs)))
	default:
		d.drop(n, "buffer full")
	}
}

func (d *Dispatcher) drop(n *domain.Notification, reason string) {
	metrics.RecordNotification(metrics.NotificationDropped)
	d.log.Warn("Notification dropped",
		zap.String("reason", reason),
		zap.String("notification_id", n.ID),
		zap.String("kind", string(n.Kind)),
		zap.String("to", n.Destination),
	)
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for j := range d.jobs {
		metrics.NotificationQueueDepth.Set(float64(len(d.jobs)))
		d.publish(j)
	}
}

func (d *Dispatcher) publish(j job) {
	ctx := telemetry.ExtractMap(context.Background(), j.trace)
	ctx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	if err := d.publisher.Publish(ctx, j.n); err != nil {
		metrics.RecordNotification(metrics.NotificationFailed)
		d.log.WithContext(ctx).Error("Notification delivery failed",
			zap.String("notification_id", j.n.ID),
			zap.String("kind", string(j.n.Kind)),
			zap.String("to", j.n.Destination),
			zap.Error(err),
		)
		return
	}
	metrics.RecordNotification(metrics.NotificationSent)
}

// Stop stops accepting notifications and waits for the buffer to drain
// or ctx to expire
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.jobs)
	started := d.started
	d.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.log.Info("Notification dispatcher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
