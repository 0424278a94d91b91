package dto

import "github.com/prohmpiriya/queueme/internal/domain"

// JoinQueueRequest represents request to join the queue
type JoinQueueRequest struct {
	Name      string `json:"name" binding:"required"`
	Mobile    string `json:"mobile" binding:"required"`
	ServiceID string `json:"serviceId" binding:"required"`
}

// JoinQueueResponse represents response after joining the queue
type JoinQueueResponse struct {
	Message           string `json:"message"`
	QueueNumber       int    `json:"queueNumber"`
	EstimatedWaitTime int    `json:"estimatedWaitTime"` // minutes
}

// QueueStatusResponse represents the live status of a customer's entry
type QueueStatusResponse struct {
	QueueNumber   int                `json:"queueNumber"`
	Status        domain.EntryStatus `json:"status"`
	Position      int                `json:"position"`
	EstimatedWait int                `json:"estimatedWait"` // minutes
	Service       *domain.Service    `json:"service"`
}

// CancelQueueResponse represents response after a customer cancels
type CancelQueueResponse struct {
	Message string `json:"message"`
}
