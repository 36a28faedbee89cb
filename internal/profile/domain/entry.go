package profile

import (
	"context"
	"errors"
	"time"
)

// DateLayout is the profile's calendar date format.
const DateLayout = "2006-01-02"

var (
	// ErrInvalidEntry is returned for entries with an unparsable date.
	ErrInvalidEntry = errors.New("profile: invalid entry")
	// ErrEmptyProfile is returned when replacing the profile with no entries.
	ErrEmptyProfile = errors.New("profile: empty profile")
)

// Entry is one point of the standard load profile: expected household load for
// a date and time slot.
type Entry struct {
	Date   string
	Time   string
	Energy float64
}

// Day parses the entry date.
func (e Entry) Day() (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, e.Date, time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidEntry
	}
	return day, nil
}

// Repository reads and bulk-loads the profile.
type Repository interface {
	// SumEnergy sums energy for from <= date <= to. ok is false when no row matches.
	SumEnergy(ctx context.Context, from, to time.Time) (float64, bool, error)
	// ReplaceAll swaps the whole profile.
	ReplaceAll(ctx context.Context, entries []Entry) error
}
