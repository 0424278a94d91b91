package domain

import "time"

// DailyLimit is the capacity ledger record of one day
type DailyLimit struct {
	Day          DayKey    `json:"date"`
	MaxCustomers int       `json:"maxCustomers"`
	CurrentCount int       `json:"currentCount"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ValidateMaxCustomers checks an admin supplied limit
func ValidateMaxCustomers(n int) error {
	if n < 1 {
		return NewValidationError("maxCustomers", "must be at least 1")
	}
	return nil
}
