package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/queueme/internal/domain"
	"github.com/prohmpiriya/queueme/pkg/logger"
	"github.com/prohmpiriya/queueme/pkg/response"
	"go.uber.org/zap"
)

// handleError converts domain errors to HTTP responses
func handleError(c *gin.Context, err error) {
	var verr *domain.ValidationError

	switch {
	case errors.Is(err, domain.ErrAlreadyQueued):
		response.Error(c, http.StatusBadRequest, "ALREADY_QUEUED", "You are already in the queue")
	case errors.Is(err, domain.ErrCapacityExceeded):
		response.Error(c, http.StatusBadRequest, "CAPACITY_EXCEEDED", "Sorry, we have reached our daily customer limit. Please try again tomorrow.")
	case errors.As(err, &verr):
		response.BadRequest(c, verr.Error())
	case errors.Is(err, domain.ErrServiceNotFound):
		response.Error(c, http.StatusNotFound, "SERVICE_NOT_FOUND", "Service not found")
	case errors.Is(err, domain.ErrEntryNotFound), errors.Is(err, domain.ErrCustomerNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "No active queue found")
	case errors.Is(err, domain.ErrInvalidTransition):
		response.Error(c, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		logger.Get().WithContext(c.Request.Context()).Error("Store unavailable", zap.Error(err))
		response.Error(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Service temporarily unavailable")
	default:
		logger.Get().WithContext(c.Request.Context()).Error("Unhandled error", zap.Error(err))
		response.InternalError(c)
	}
}
