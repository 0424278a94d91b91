package dto

import "github.com/prohmpiriya/queueme/internal/domain"

// UpdateStatusRequest represents an admin status change
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatusResponse returns the entry after the change
type UpdateStatusResponse struct {
	Message string             `json:"message"`
	Queue   *domain.QueueEntry `json:"queue"`
}

// ListQueueRequest holds query parameters of GET /queue
type ListQueueRequest struct {
	Status string `form:"status"`
	// Day is YYYY-MM-DD or "today"; empty and "all" list every day
	Day string `form:"day"`
}

// StatsResponse summarizes today's queue
type StatsResponse struct {
	Date         domain.DayKey `json:"date"`
	Waiting      int           `json:"waiting"`
	InProgress   int           `json:"inProgress"`
	Completed    int           `json:"completed"`
	Cancelled    int           `json:"cancelled"`
	Total        int           `json:"total"`
	MaxCustomers int           `json:"maxCustomers"`
	CurrentCount int           `json:"currentCount"`
}

// RecordsRequest holds query parameters of GET /records
type RecordsRequest struct {
	Period string `form:"period"` // today, week, month, all
	Status string `form:"status"`
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
}

// RecordsResponse is one page of historical entries
type RecordsResponse struct {
	Records     []*domain.QueueEntry `json:"records"`
	TotalPages  int                  `json:"totalPages"`
	CurrentPage int                  `json:"currentPage"`
	Total       int                  `json:"total"`
}

// DeleteRecordsRequest represents a retention purge
type DeleteRecordsRequest struct {
	Days int `json:"days"`
}

// DeleteRecordsResponse reports how many entries were purged
type DeleteRecordsResponse struct {
	Message string `json:"message"`
	Deleted int64  `json:"deleted"`
}

// DailyLimitRequest sets today's capacity
type DailyLimitRequest struct {
	MaxCustomers int `json:"maxCustomers" binding:"required"`
}

// DailyLimitResponse returns the updated ledger record
type DailyLimitResponse struct {
	Message    string             `json:"message"`
	DailyLimit *domain.DailyLimit `json:"dailyLimit"`
}
