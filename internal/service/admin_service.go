package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/prohmpiriya/queueme/internal/domain"
	"github.com/prohmpiriya/queueme/internal/dto"
	"github.com/prohmpiriya/queueme/internal/repository"
	"github.com/prohmpiriya/queueme/pkg/logger"
	"github.com/prohmpiriya/queueme/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	// DefaultRetentionDays is used when a purge does not name a window
	DefaultRetentionDays = 30

	defaultRecordsPage  = 1
	defaultRecordsLimit = 10
	maxRecordsLimit     = 100

	// maxPurgeDays bounds the purge horizon to a date the calendar can represent
	maxPurgeDays = 100 * 366

	filterAll = "all"
)

// AdminService defines the dashboard operations
type AdminService interface {
	// ListQueue returns entries sorted by queue number
	ListQueue(ctx context.Context, req *dto.ListQueueRequest) ([]*domain.QueueEntry, error)

	// UpdateStatus moves an entry through the state machine
	UpdateStatus(ctx context.Context, id string, req *dto.UpdateStatusRequest) (*dto.UpdateStatusResponse, error)

	// Stats summarizes today's queue
	Stats(ctx context.Context) (*dto.StatsResponse, error)

	// Records returns one page of entries, newest check-in first
	Records(ctx context.Context, req *dto.RecordsRequest) (*dto.RecordsResponse, error)

	// PurgeRecords deletes entries checked in more than days ago
	PurgeRecords(ctx context.Context, days int) (*dto.DeleteRecordsResponse, error)

	// SetDailyLimit changes today's maximum
	SetDailyLimit(ctx context.Context, req *dto.DailyLimitRequest) (*dto.DailyLimitResponse, error)
}

// adminService implements AdminService
type adminService struct {
	store         repository.Store
	ledger        *CapacityLedger
	transitions   *StatusTransitioner
	clock         domain.Clock
	retentionDays int
	log           *logger.Logger
}

// AdminServiceConfig contains configuration for admin service
type AdminServiceConfig struct {
	DefaultDailyLimit    int
	DefaultRetentionDays int
	// NotifyAdminCancel sends the cancellation message when an admin cancels
	NotifyAdminCancel bool
	Templates         *domain.Templates
	Clock             domain.Clock
	Logger            *logger.Logger
}

// NewAdminService creates a new admin service
func NewAdminService(store repository.Store, notifier Notifier, cfg *AdminServiceConfig) AdminService {
	if cfg == nil {
		cfg = &AdminServiceConfig{}
	}

	templates := domain.DefaultTemplates()
	if cfg.Templates != nil {
		templates = *cfg.Templates
	}
	if !cfg.NotifyAdminCancel {
		templates.AdminCancel = ""
	}
	clock := cfg.Clock
	if clock == nil {
		clock = domain.NewSystemClock(nil)
	}
	retention := cfg.DefaultRetentionDays
	if retention <= 0 {
		retention = DefaultRetentionDays
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	return &adminService{
		store:         store,
		ledger:        NewCapacityLedger(cfg.DefaultDailyLimit),
		transitions:   NewStatusTransitioner(store.Entries(), clock, notifier, templates),
		clock:         clock,
		retentionDays: retention,
		log:           log,
	}
}

// ListQueue returns entries of every day unless the request names a day
// or "today"
func (s *adminService) ListQueue(ctx context.Context, req *dto.ListQueueRequest) ([]*domain.QueueEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.admin.list_queue")
	defer span.End()

	if req == nil {
		req = &dto.ListQueueRequest{}
	}

	filter := repository.EntryFilter{}
	switch day := strings.TrimSpace(req.Day); day {
	case "", filterAll:
	case "today":
		today := s.clock.Today()
		filter.Day = &today
	default:
		parsed, err := domain.ParseDayKey(day)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		filter.Day = &parsed
	}

	status, err := parseStatusFilter(req.Status)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	filter.Status = status

	entries, err := s.store.Entries().List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(entries)))
	span.SetStatus(codes.Ok, "")
	return entries, nil
}

// UpdateStatus moves an entry through the state machine on behalf of the admin
func (s *adminService) UpdateStatus(ctx context.Context, id string, req *dto.UpdateStatusRequest) (*dto.UpdateStatusResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.admin.update_status")
	defer span.End()

	if req == nil {
		return nil, domain.NewValidationError("status", "is required")
	}
	next, err := domain.ParseEntryStatus(strings.TrimSpace(req.Status))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	entry, err := s.store.Entries().GetByID(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.transitions.Apply(ctx, entry, next, domain.TriggerAdmin); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.log.WithContext(ctx).Info("Queue status updated",
		zap.String("entry_id", entry.ID),
		zap.Int("queue_number", entry.QueueNumber),
		zap.String("status", string(entry.Status)),
	)

	span.SetStatus(codes.Ok, "")
	return &dto.UpdateStatusResponse{
		Message: "Queue status updated successfully",
		Queue:   entry,
	}, nil
}

// Stats counts today's entries by status alongside today's capacity
func (s *adminService) Stats(ctx context.Context) (*dto.StatsResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.admin.stats")
	defer span.End()

	today := s.clock.Today()

	counts, err := s.store.Entries().CountByStatus(ctx, today)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	limit, err := s.ledger.Get(ctx, s.store.DailyLimits(), today)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	resp := &dto.StatsResponse{
		Date:         today,
		Waiting:      counts[domain.StatusWaiting],
		InProgress:   counts[domain.StatusInProgress],
		Completed:    counts[domain.StatusCompleted],
		Cancelled:    counts[domain.StatusCancelled],
		MaxCustomers: limit.MaxCustomers,
		CurrentCount: limit.CurrentCount,
	}
	resp.Total = resp.Waiting + resp.InProgress + resp.Completed + resp.Cancelled

	span.SetStatus(codes.Ok, "")
	return resp, nil
}

// Records returns a page of entries filtered by period and status
func (s *adminService) Records(ctx context.Context, req *dto.RecordsRequest) (*dto.RecordsResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.admin.records")
	defer span.End()

	if req == nil {
		req = &dto.RecordsRequest{}
	}

	page := req.Page
	if page < 1 {
		page = defaultRecordsPage
	}
	limit := req.Limit
	if limit < 1 {
		limit = defaultRecordsLimit
	}
	if limit > maxRecordsLimit {
		limit = maxRecordsLimit
	}

	if page > math.MaxInt/limit {
		err := domain.NewValidationError("page", "out of range")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	filter := repository.RecordFilter{
		Offset: (page - 1) * limit,
		Limit:  limit,
	}

	now := s.clock.Now()
	switch period := strings.TrimSpace(req.Period); period {
	case "", filterAll:
	case "today":
		today := s.clock.Today()
		filter.Day = &today
	case "week":
		since := now.AddDate(0, 0, -7)
		filter.Since = &since
	case "month":
		since := now.AddDate(0, -1, 0)
		filter.Since = &since
	default:
		err := domain.NewValidationError("period", fmt.Sprintf("unknown period %q", period))
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	status, err := parseStatusFilter(req.Status)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	filter.Status = status

	records, total, err := s.store.Entries().ListRecords(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if records == nil {
		records = []*domain.QueueEntry{}
	}

	span.SetAttributes(
		attribute.Int("page", page),
		attribute.Int("total", total),
	)
	span.SetStatus(codes.Ok, "")
	return &dto.RecordsResponse{
		Records:     records,
		TotalPages:  (total + limit - 1) / limit,
		CurrentPage: page,
		Total:       total,
	}, nil
}

// PurgeRecords deletes entries checked in more than days ago. Zero means
// the configured retention.
func (s *adminService) PurgeRecords(ctx context.Context, days int) (*dto.DeleteRecordsResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.admin.purge_records")
	defer span.End()

	if days == 0 {
		days = s.retentionDays
	}
	if days < 1 {
		err := domain.NewValidationError("days", "must be at least 1")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	cutoff := s.clock.Now().AddDate(0, 0, -min(days, maxPurgeDays))
	deleted, err := s.store.Entries().DeleteOlderThan(ctx, cutoff)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.log.WithContext(ctx).Info("Purged queue records",
		zap.Int("days", days),
		zap.Time("cutoff", cutoff),
		zap.Int64("deleted", deleted),
	)

	span.SetAttributes(attribute.Int64("deleted", deleted))
	span.SetStatus(codes.Ok, "")
	return &dto.DeleteRecordsResponse{
		Message: fmt.Sprintf("Deleted %d records older than %d days", deleted, days),
		Deleted: deleted,
	}, nil
}

// SetDailyLimit upserts today's maximum
func (s *adminService) SetDailyLimit(ctx context.Context, req *dto.DailyLimitRequest) (*dto.DailyLimitResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.admin.set_daily_limit")
	defer span.End()

	if req == nil {
		return nil, domain.NewValidationError("maxCustomers", "is required")
	}

	today := s.clock.Today()
	limit, err := s.ledger.SetMax(ctx, s.store.DailyLimits(), today, req.MaxCustomers)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.log.WithContext(ctx).Info("Daily limit updated",
		zap.String("day", today.String()),
		zap.Int("max_customers", limit.MaxCustomers),
		zap.Int("current_count", limit.CurrentCount),
	)

	span.SetStatus(codes.Ok, "")
	return &dto.DailyLimitResponse{
		Message:    "Daily limit updated successfully",
		DailyLimit: limit,
	}, nil
}

// parseStatusFilter maps "" and "all" to no filter
func parseStatusFilter(s string) (domain.EntryStatus, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == filterAll {
		return "", nil
	}
	return domain.ParseEntryStatus(s)
}
