package domain

import (
	"fmt"
	"time"
)

const dayKeyLayout = "2006-01-02"

// DayKey is a calendar date in the shop's reference timezone. It scopes
// capacity and queue numbering.
type DayKey string

// DayOf returns the day-key of t in loc
func DayOf(t time.Time, loc *time.Location) DayKey {
	return DayKey(t.In(loc).Format(dayKeyLayout))
}

// ParseDayKey parses a YYYY-MM-DD date
func ParseDayKey(s string) (DayKey, error) {
	t, err := time.Parse(dayKeyLayout, s)
	if err != nil {
		return "", NewValidationError("day", fmt.Sprintf("must be YYYY-MM-DD, got %q", s))
	}
	return DayKey(t.Format(dayKeyLayout)), nil
}

func (d DayKey) String() string { return string(d) }

// Date returns the day as midnight UTC, the shape a SQL DATE column expects
func (d DayKey) Date() time.Time {
	t, _ := time.Parse(dayKeyLayout, string(d))
	return t
}

// DayKeyFromDate converts a scanned SQL DATE back into a DayKey
func DayKeyFromDate(t time.Time) DayKey {
	return DayKey(t.Format(dayKeyLayout))
}

// Clock is the time source for timestamps and day boundaries
type Clock interface {
	Now() time.Time
	Today() DayKey
	Location() *time.Location
}

// SystemClock reads the wall clock in a fixed location
type SystemClock struct {
	loc *time.Location
}

// NewSystemClock creates a clock bound to loc, UTC when nil
func NewSystemClock(loc *time.Location) *SystemClock {
	if loc == nil {
		loc = time.UTC
	}
	return &SystemClock{loc: loc}
}

func (c *SystemClock) Now() time.Time { return time.Now().In(c.loc) }

func (c *SystemClock) Today() DayKey { return DayOf(time.Now(), c.loc) }

func (c *SystemClock) Location() *time.Location { return c.loc }
