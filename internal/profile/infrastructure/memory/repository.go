package memory

import (
	"context"
	"sync"
	"time"

	profile "github.com/buzzn/myBuzzn-backend-sub000/internal/profile/domain"
)

// Repository keeps the profile in memory.
type Repository struct {
	mu      sync.RWMutex
	entries []profile.Entry
}

// NewRepository constructs a repository holding entries.
func NewRepository(entries ...profile.Entry) *Repository {
	return &Repository{entries: append([]profile.Entry(nil), entries...)}
}

// SumEnergy sums energy between from and to inclusive.
func (r *Repository) SumEnergy(ctx context.Context, from, to time.Time) (float64, bool, error) {
	_ = ctx
	lo, hi := from.UTC().Format(profile.DateLayout), to.UTC().Format(profile.DateLayout)
	r.mu.RLock()
	defer r.mu.RUnlock()
	var (
		sum     float64
		matched bool
	)
	for _, entry := range r.entries {
		if entry.Date < lo || entry.Date > hi {
			continue
		}
		sum += entry.Energy
		matched = true
	}
	return sum, matched, nil
}

// ReplaceAll swaps the profile.
func (r *Repository) ReplaceAll(ctx context.Context, entries []profile.Entry) error {
	_ = ctx
	if len(entries) == 0 {
		return profile.ErrEmptyProfile
	}
	for _, entry := range entries {
		if _, err := entry.Day(); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append([]profile.Entry(nil), entries...)
	return nil
}
