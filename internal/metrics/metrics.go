package metrics

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prohmpiriya/queueme/internal/domain"
)

const namespace = "queueme"

// Admission results
const (
	ResultAdmitted         = "admitted"
	ResultAlreadyQueued    = "already_queued"
	ResultCapacityExceeded = "capacity_exceeded"
	ResultServiceNotFound  = "service_not_found"
	ResultInvalid          = "invalid"
	ResultError            = "error"
)

// Notification outcomes
const (
	NotificationQueued       = "queued"
	NotificationDropped      = "dropped"
	NotificationSent         = "sent"
	NotificationFailed       = "failed"
	NotificationDeadLettered = "dead_lettered"
)

var (
	AdmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "admissions_total",
		Help:      "Join attempts by result",
	}, []string{"result"})

	AdmissionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "admission_duration_seconds",
		Help:      "Time spent admitting a customer, including the store transaction",
		Buckets:   prometheus.DefBuckets,
	})

	TransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_transitions_total",
		Help:      "Applied queue entry status transitions",
	}, []string{"from", "to", "source"})

	NotificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Notifications by outcome",
	}, []string{"outcome"})

	NotificationQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notification_queue_depth",
		Help:      "Notifications buffered for dispatch",
	})

	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "route", "status"})

	initOnce sync.Once
	initErr  error
)

// Init registers all collectors with the default registry
func Init() error {
	initOnce.Do(func() {
		initErr = Register(prometheus.DefaultRegisterer)
	})
	return initErr
}

// Register registers all collectors with reg
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		AdmissionsTotal,
		AdmissionDuration,
		TransitionsTotal,
		NotificationsTotal,
		NotificationQueueDepth,
		RequestDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// RecordAdmission counts a join attempt by its outcome
func RecordAdmission(err error, elapsed time.Duration) {
	AdmissionDuration.Observe(elapsed.Seconds())
	AdmissionsTotal.WithLabelValues(admissionResult(err)).Inc()
}

func admissionResult(err error) string {
	switch {
	case err == nil:
		return ResultAdmitted
	case errors.Is(err, domain.ErrAlreadyQueued):
		return ResultAlreadyQueued
	case errors.Is(err, domain.ErrCapacityExceeded):
		return ResultCapacityExceeded
	case errors.Is(err, domain.ErrServiceNotFound):
		return ResultServiceNotFound
	case errors.Is(err, domain.ErrValidation):
		return ResultInvalid
	default:
		return ResultError
	}
}

// RecordTransition counts an applied status change
func RecordTransition(from, to domain.EntryStatus, source domain.TriggerSource) {
	TransitionsTotal.WithLabelValues(string(from), string(to), string(source)).Inc()
}

// RecordNotification counts a notification outcome
func RecordNotification(outcome string) {
	NotificationsTotal.WithLabelValues(outcome).Inc()
}

// HTTPMiddleware observes request latency by route template
func HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestDuration.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}
