package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/queueme/internal/dto"
	"github.com/prohmpiriya/queueme/internal/service"
	"github.com/prohmpiriya/queueme/pkg/response"
	"github.com/prohmpiriya/queueme/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// QueueHandler handles customer queue HTTP requests
type QueueHandler struct {
	queueService service.QueueService
}

// NewQueueHandler creates a new queue handler
func NewQueueHandler(queueService service.QueueService) *QueueHandler {
	return &QueueHandler{
		queueService: queueService,
	}
}

// Register mounts the customer routes on rg
func (h *QueueHandler) Register(rg gin.IRoutes, join ...gin.HandlerFunc) {
	rg.POST("/join-queue", append(join, h.JoinQueue)...)
	rg.GET("/queue-status/:mobile", h.GetStatus)
	rg.PUT("/cancel-queue/:mobile", h.CancelQueue)
}

// JoinQueue handles POST /join-queue
func (h *QueueHandler) JoinQueue(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.queue.join")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.JoinQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		response.BadRequest(c, "name, mobile and serviceId are required")
		return
	}

	span.SetAttributes(attribute.String("service_id", req.ServiceID))

	result, err := h.queueService.JoinQueue(ctx, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Created(c, result)
}

// GetStatus handles GET /queue-status/:mobile
func (h *QueueHandler) GetStatus(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.queue.status")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	result, err := h.queueService.GetStatus(ctx, c.Param("mobile"))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.OK(c, result)
}

// CancelQueue handles PUT /cancel-queue/:mobile
func (h *QueueHandler) CancelQueue(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.queue.cancel")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	result, err := h.queueService.CancelQueue(ctx, c.Param("mobile"))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.OK(c, result)
}
