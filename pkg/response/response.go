package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the error body returned by every endpoint
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// MessageResponse is the body of operations that only acknowledge
type MessageResponse struct {
	Message string `json:"message"`
}

// OK writes a 200 response
func OK(c *gin.Context, body interface{}) {
	c.JSON(http.StatusOK, body)
}

// Created writes a 201 response
func Created(c *gin.Context, body interface{}) {
	c.JSON(http.StatusCreated, body)
}

// Message writes a 200 response carrying only a message
func Message(c *gin.Context, message string) {
	c.JSON(http.StatusOK, MessageResponse{Message: message})
}

// Error writes an error response
func Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Message: message, Code: code})
}

// Abort writes an error response and stops the handler chain
func Abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Message: message, Code: code})
}

// BadRequest writes a 400 validation error
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, "INVALID_REQUEST", message)
}

// InternalError writes a 500 without leaking the cause
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Server error")
}
