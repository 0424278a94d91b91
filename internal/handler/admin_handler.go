package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/queueme/internal/dto"
	"github.com/prohmpiriya/queueme/internal/service"
	"github.com/prohmpiriya/queueme/pkg/middleware"
	"github.com/prohmpiriya/queueme/pkg/response"
	"github.com/prohmpiriya/queueme/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// AdminHandler handles dashboard HTTP requests
type AdminHandler struct {
	adminService service.AdminService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// Register mounts the admin routes on rg, which must already be authenticated
func (h *AdminHandler) Register(rg gin.IRoutes) {
	rg.GET("/queue", h.ListQueue)
	rg.PUT("/queue/:id/status", h.UpdateStatus)
	rg.GET("/stats", h.Stats)
	rg.GET("/records", h.Records)
	rg.DELETE("/records", h.DeleteRecords)
	rg.PUT("/daily-limit", h.SetDailyLimit)
}

// ListQueue handles GET /queue
func (h *AdminHandler) ListQueue(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.list_queue")
	defer span.End()

	var req dto.ListQueueRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		response.BadRequest(c, err.Error())
		return
	}

	entries, err := h.adminService.ListQueue(ctx, &req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.OK(c, entries)
}

// UpdateStatus handles PUT /queue/:id/status
func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.update_status")
	defer span.End()

	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		response.BadRequest(c, "status is required")
		return
	}

	id := c.Param("id")
	span.SetAttributes(
		attribute.String("entry_id", id),
		attribute.String("status", req.Status),
	)
	if p, ok := middleware.GetPrincipal(c); ok {
		span.SetAttributes(attribute.String("admin_id", p.ID))
	}

	result, err := h.adminService.UpdateStatus(ctx, id, &req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.OK(c, result)
}

// Stats handles GET /stats
func (h *AdminHandler) Stats(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.stats")
	defer span.End()

	stats, err := h.adminService.Stats(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.OK(c, stats)
}

// Records handles GET /records
func (h *AdminHandler) Records(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.records")
	defer span.End()

	var req dto.RecordsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		response.BadRequest(c, "page and limit must be numbers")
		return
	}

	records, err := h.adminService.Records(ctx, &req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.OK(c, records)
}

// DeleteRecords handles DELETE /records. The body is optional.
func (h *AdminHandler) DeleteRecords(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.delete_records")
	defer span.End()

	var req dto.DeleteRecordsRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		span.SetStatus(codes.Error, "invalid request")
		response.BadRequest(c, "days must be a number")
		return
	}

	result, err := h.adminService.PurgeRecords(ctx, req.Days)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.OK(c, result)
}

// SetDailyLimit handles PUT /daily-limit
func (h *AdminHandler) SetDailyLimit(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.daily_limit")
	defer span.End()

	var req dto.DailyLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		response.BadRequest(c, "maxCustomers must be at least 1")
		return
	}

	result, err := h.adminService.SetDailyLimit(ctx, &req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.OK(c, result)
}
