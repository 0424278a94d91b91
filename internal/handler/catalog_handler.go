package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/queueme/internal/service"
	"github.com/prohmpiriya/queueme/pkg/response"
	"github.com/prohmpiriya/queueme/pkg/telemetry"
	"go.opentelemetry.io/otel/codes"
)

// CatalogHandler serves the service catalog
type CatalogHandler struct {
	catalog service.CatalogService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListServices handles GET /api/services
func (h *CatalogHandler) ListServices(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.catalog.list")
	defer span.End()

	services, err := h.catalog.ListServices(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.OK(c, services)
}
