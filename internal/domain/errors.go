package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	// Admission errors
	ErrAlreadyQueued    = errors.New("customer already has an active queue entry")
	ErrCapacityExceeded = errors.New("daily customer limit reached")
	ErrServiceNotFound  = errors.New("service not found")

	// Entry errors
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrEntryNotFound     = errors.New("queue entry not found")
	ErrInvalidTransition = errors.New("invalid status transition")

	// Caller and infrastructure errors
	ErrValidation       = errors.New("validation failed")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// TransitionError names the rejected state change
type TransitionError struct {
	From EntryStatus
	To   EntryStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change status from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// ValidationError reports malformed input for a single field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Unavailable wraps an infrastructure fault so callers can classify it
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrServiceNotFound) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrEntryNotFound)
}

// IsRejectedAdmission checks if a join was refused for a business reason
func IsRejectedAdmission(err error) bool {
	return errors.Is(err, ErrAlreadyQueued) ||
		errors.Is(err, ErrCapacityExceeded)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}
