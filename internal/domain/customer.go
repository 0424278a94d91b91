package domain

import (
	"strings"
	"time"
	"unicode"
)

const (
	maxNameLength   = 100
	minMobileDigits = 6
	maxMobileLength = 20
)

// Customer is a walk-in customer, identified by mobile number
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Mobile    string    `json:"mobile"`
	CreatedAt time.Time `json:"createdAt"`
}

// NormalizeMobile strips formatting characters so lookups match regardless
// of how the number was typed
func NormalizeMobile(mobile string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(mobile) {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateMobile checks a normalized mobile number
func ValidateMobile(mobile string) error {
	if mobile == "" {
		return NewValidationError("mobile", "is required")
	}
	if len(mobile) > maxMobileLength {
		return NewValidationError("mobile", "is too long")
	}
	if len(strings.TrimPrefix(mobile, "+")) < minMobileDigits {
		return NewValidationError("mobile", "must contain at least 6 digits")
	}
	return nil
}

// ValidateName checks a customer display name
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return NewValidationError("name", "is required")
	}
	if len([]rune(name)) > maxNameLength {
		return NewValidationError("name", "is too long")
	}
	return nil
}
