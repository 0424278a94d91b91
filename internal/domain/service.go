package domain

import "time"

// Service is an offering from the shop's catalog
type Service struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Duration    int       `json:"duration"` // minutes
	CreatedAt   time.Time `json:"createdAt"`
}

// Validate validates catalog data
func (s *Service) Validate() error {
	if s.Name == "" {
		return NewValidationError("name", "is required")
	}
	if s.Price < 0 {
		return NewValidationError("price", "cannot be negative")
	}
	if s.Duration < 1 {
		return NewValidationError("duration", "must be at least 1 minute")
	}
	return nil
}

// DefaultServices is the catalog inserted by service seeding
func DefaultServices() []Service {
	return []Service{
		{Name: "Haircut", Description: "Classic haircut with styling", Price: 25, Duration: 30},
		{Name: "Beard Trim", Description: "Beard shaping and trim", Price: 15, Duration: 15},
		{Name: "Haircut & Beard", Description: "Haircut with a full beard trim", Price: 35, Duration: 45},
		{Name: "Hot Towel Shave", Description: "Traditional straight razor shave", Price: 30, Duration: 30},
		{Name: "Kids Haircut", Description: "Haircut for children under 12", Price: 18, Duration: 20},
	}
}
