package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prohmpiriya/queueme/internal/domain"
	"github.com/prohmpiriya/queueme/internal/dto"
	"github.com/prohmpiriya/queueme/internal/metrics"
	"github.com/prohmpiriya/queueme/internal/repository"
	"github.com/prohmpiriya/queueme/pkg/logger"
	"github.com/prohmpiriya/queueme/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// QueueService defines the customer facing queue operations
type QueueService interface {
	// JoinQueue admits a customer to today's queue
	JoinQueue(ctx context.Context, req *dto.JoinQueueRequest) (*dto.JoinQueueResponse, error)

	// GetStatus returns the live position of the customer's active entry
	GetStatus(ctx context.Context, mobile string) (*dto.QueueStatusResponse, error)

	// CancelQueue cancels the customer's waiting entry
	CancelQueue(ctx context.Context, mobile string) (*dto.CancelQueueResponse, error)
}

// queueService implements QueueService
type queueService struct {
	store       repository.Store
	ledger      *CapacityLedger
	sequencer   *QueueSequencer
	transitions *StatusTransitioner
	notifier    Notifier
	templates   domain.Templates
	clock       domain.Clock
	log         *logger.Logger
}

// QueueServiceConfig contains configuration for queue service
type QueueServiceConfig struct {
	DefaultDailyLimit  int
	MinutesPerCustomer int
	Templates          *domain.Templates
	Clock              domain.Clock
	Logger             *logger.Logger
}

// NewQueueService creates a new queue service
func NewQueueService(store repository.Store, notifier Notifier, cfg *QueueServiceConfig) QueueService {
	if cfg == nil {
		cfg = &QueueServiceConfig{}
	}
	if notifier == nil {
		notifier = NoOpNotifier{}
	}

	templates := domain.DefaultTemplates()
	if cfg.Templates != nil {
		templates = *cfg.Templates
	}
	clock := cfg.Clock
	if clock == nil {
		clock = domain.NewSystemClock(nil)
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	return &queueService{
		store:       store,
		ledger:      NewCapacityLedger(cfg.DefaultDailyLimit),
		sequencer:   NewQueueSequencer(cfg.MinutesPerCustomer),
		transitions: NewStatusTransitioner(store.Entries(), clock, notifier, templates),
		notifier:    notifier,
		templates:   templates,
		clock:       clock,
		log:         log,
	}
}

// JoinQueue runs the admission as one transaction: customer resolution,
// duplicate check, slot reservation, service lookup, numbering and entry
// creation. Any failure rolls the whole admission back, which also returns
// the reserved slot and the allocated number. The confirmation is sent
// after commit and its failure does not affect the result.
func (s *queueService) JoinQueue(ctx context.Context, req *dto.JoinQueueRequest) (resp *dto.JoinQueueResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.queue.join")
	defer span.End()

	start := time.Now()
	defer func() { metrics.RecordAdmission(err, time.Since(start)) }()

	if req == nil {
		span.SetStatus(codes.Error, "invalid request")
		return nil, domain.NewValidationError("request", "is required")
	}

	name := strings.TrimSpace(req.Name)
	mobile := domain.NormalizeMobile(req.Mobile)
	serviceID := strings.TrimSpace(req.ServiceID)

	if err := validateJoin(name, mobile, serviceID); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		return nil, err
	}

	now := s.clock.Now()
	day := domain.DayOf(now, s.clock.Location())

	span.SetAttributes(
		attribute.String("mobile", mobile),
		attribute.String("service_id", serviceID),
		attribute.String("day", day.String()),
	)

	var (
		entry    *domain.QueueEntry
		customer *domain.Customer
	)
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		customer, err = tx.Customers().FindOrCreate(ctx, &domain.Customer{
			ID:        uuid.NewString(),
			Name:      name,
			Mobile:    mobile,
			CreatedAt: now,
		})
		if err != nil {
			return err
		}

		active, err := tx.Entries().FindActiveByCustomer(ctx, customer.ID)
		switch {
		case err == nil:
			return fmt.Errorf("queue number %d is %s: %w", active.QueueNumber, active.Status, domain.ErrAlreadyQueued)
		case !errors.Is(err, domain.ErrEntryNotFound):
			return err
		}

		if _, err := s.ledger.Reserve(ctx, tx.DailyLimits(), day); err != nil {
			return err
		}

		svc, err := tx.Services().GetByID(ctx, serviceID)
		if err != nil {
			return err
		}

		number, err := s.sequencer.NextNumber(ctx, tx.Entries(), day)
		if err != nil {
			return err
		}

		waiting, err := tx.Entries().CountWaiting(ctx, day)
		if err != nil {
			return err
		}

		entry = domain.NewQueueEntry(uuid.NewString(), customer.ID, svc.ID, day, number, s.sequencer.EstimateWait(waiting), now)
		return tx.Entries().Create(ctx, entry)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("entry_id", entry.ID),
		attribute.Int("queue_number", entry.QueueNumber),
	)

	if s.templates.Joined != "" {
		msg := s.templates.JoinedMessage(customer.Name, entry.QueueNumber, entry.EstimatedWaitTime)
		s.notifier.Notify(ctx, newNotification(domain.NotificationJoined, entry, customer.Mobile, msg, now))
	}

	s.log.WithContext(ctx).Info("Customer joined the queue",
		zap.String("entry_id", entry.ID),
		zap.String("day", day.String()),
		zap.Int("queue_number", entry.QueueNumber),
		zap.Int("estimated_wait", entry.EstimatedWaitTime),
	)

	span.SetStatus(codes.Ok, "")
	return &dto.JoinQueueResponse{
		Message:           "Successfully joined the queue",
		QueueNumber:       entry.QueueNumber,
		EstimatedWaitTime: entry.EstimatedWaitTime,
	}, nil
}

func validateJoin(name, mobile, serviceID string) error {
	if err := domain.ValidateName(name); err != nil {
		return err
	}
	if err := domain.ValidateMobile(mobile); err != nil {
		return err
	}
	if serviceID == "" {
		return domain.NewValidationError("serviceId", "is required")
	}
	return nil
}

// GetStatus returns the live position of the customer's active entry
func (s *queueService) GetStatus(ctx context.Context, mobile string) (*dto.QueueStatusResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.queue.get_status")
	defer span.End()

	entry, err := s.activeEntry(ctx, mobile)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	position, wait, err := s.sequencer.Position(ctx, s.store.Entries(), entry)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("entry_id", entry.ID),
		attribute.Int("position", position),
	)
	span.SetStatus(codes.Ok, "")
	return &dto.QueueStatusResponse{
		QueueNumber:   entry.QueueNumber,
		Status:        entry.Status,
		Position:      position,
		EstimatedWait: wait,
		Service:       entry.Service,
	}, nil
}

// CancelQueue cancels the customer's entry while it is still waiting.
// Once the customer is with the barber only the admin can cancel.
func (s *queueService) CancelQueue(ctx context.Context, mobile string) (*dto.CancelQueueResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.queue.cancel")
	defer span.End()

	entry, err := s.activeEntry(ctx, mobile)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if entry.Status != domain.StatusWaiting {
		span.SetStatus(codes.Error, "no waiting entry")
		return nil, fmt.Errorf("no waiting queue entry to cancel: %w", domain.ErrEntryNotFound)
	}

	if err := s.transitions.Apply(ctx, entry, domain.StatusCancelled, domain.TriggerCustomer); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.log.WithContext(ctx).Info("Customer cancelled queue entry",
		zap.String("entry_id", entry.ID),
		zap.Int("queue_number", entry.QueueNumber),
	)

	span.SetStatus(codes.Ok, "")
	return &dto.CancelQueueResponse{Message: "Queue cancelled successfully"}, nil
}

// activeEntry resolves mobile to the customer's waiting or in-progress entry
func (s *queueService) activeEntry(ctx context.Context, mobile string) (*domain.QueueEntry, error) {
	mobile = domain.NormalizeMobile(mobile)
	if err := domain.ValidateMobile(mobile); err != nil {
		return nil, err
	}

	customer, err := s.store.Customers().FindByMobile(ctx, mobile)
	if err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			return nil, fmt.Errorf("no active queue entry: %w", domain.ErrEntryNotFound)
		}
		return nil, err
	}

	entry, err := s.store.Entries().FindActiveByCustomer(ctx, customer.ID)
	if err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			return nil, fmt.Errorf("no active queue entry: %w", domain.ErrEntryNotFound)
		}
		return nil, err
	}
	return entry, nil
}
