package domain

import (
	"fmt"
	"time"
)

// EntryStatus is the lifecycle state of a queue entry
type EntryStatus string

const (
	StatusWaiting    EntryStatus = "waiting"
	StatusInProgress EntryStatus = "in-progress"
	StatusCompleted  EntryStatus = "completed"
	StatusCancelled  EntryStatus = "cancelled"
)

// transitions lists every allowed status change
var transitions = map[EntryStatus][]EntryStatus{
	StatusWaiting:    {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

// AllStatuses returns the statuses in lifecycle order
func AllStatuses() []EntryStatus {
	return []EntryStatus{StatusWaiting, StatusInProgress, StatusCompleted, StatusCancelled}
}

// ParseEntryStatus validates a status string
func ParseEntryStatus(s string) (EntryStatus, error) {
	switch st := EntryStatus(s); st {
	case StatusWaiting, StatusInProgress, StatusCompleted, StatusCancelled:
		return st, nil
	}
	return "", NewValidationError("status", fmt.Sprintf("unknown status %q", s))
}

// IsActive reports whether the entry still holds the customer's place
func (s EntryStatus) IsActive() bool {
	return s == StatusWaiting || s == StatusInProgress
}

// IsTerminal reports whether no further transition is possible
func (s EntryStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether s may change to next
func (s EntryStatus) CanTransitionTo(next EntryStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// QueueEntry is one customer visit for one day
type QueueEntry struct {
	ID                string      `json:"id"`
	CustomerID        string      `json:"customerId"`
	ServiceID         string      `json:"serviceId"`
	Day               DayKey      `json:"day"`
	QueueNumber       int         `json:"queueNumber"`
	Status            EntryStatus `json:"status"`
	EstimatedWaitTime int         `json:"estimatedWaitTime"` // minutes, fixed at check-in
	CheckInTime       time.Time   `json:"checkInTime"`
	StartTime         *time.Time  `json:"startTime,omitempty"`
	EndTime           *time.Time  `json:"endTime,omitempty"`

	// Populated by list queries
	Customer *Customer `json:"customer,omitempty"`
	Service  *Service  `json:"service,omitempty"`
}

// NewQueueEntry creates a waiting entry
func NewQueueEntry(id, customerID, serviceID string, day DayKey, number, estimatedWait int, now time.Time) *QueueEntry {
	return &QueueEntry{
		ID:                id,
		CustomerID:        customerID,
		ServiceID:         serviceID,
		Day:               day,
		QueueNumber:       number,
		Status:            StatusWaiting,
		EstimatedWaitTime: estimatedWait,
		CheckInTime:       now,
	}
}

// Transition moves the entry to next and stamps the matching timestamp.
// Re-applying a transition fails, so timestamps are set at most once.
func (e *QueueEntry) Transition(next EntryStatus, now time.Time) error {
	if !e.Status.CanTransitionTo(next) {
		return &TransitionError{From: e.Status, To: next}
	}

	switch next {
	case StatusInProgress:
		e.StartTime = &now
	case StatusCompleted, StatusCancelled:
		e.EndTime = &now
	}
	e.Status = next
	return nil
}
