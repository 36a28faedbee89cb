package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	ledger "github.com/buzzn/myBuzzn-backend-sub000/internal/ledger/domain"
	"github.com/buzzn/myBuzzn-backend-sub000/internal/term"
)

// RowRepository is an in-memory ledger chain store for tests and local runs.
type RowRepository struct {
	mu     sync.RWMutex
	chains map[string]map[string]ledger.Row
}

// NewRowRepository constructs a repository.
func NewRowRepository() *RowRepository {
	return &RowRepository{chains: make(map[string]map[string]ledger.Row)}
}

func dayKey(t time.Time) string { return term.Day(t).Format(ledger.DateLayout) }

// Get loads a row.
func (r *RowRepository) Get(ctx context.Context, meterID string, date time.Time) (*ledger.Row, error) {
	_ = ctx
	if meterID == "" {
		return nil, ledger.ErrEmptyMeterID
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.chains[meterID][dayKey(date)]
	if !ok {
		return nil, ledger.ErrRowNotFound
	}
	return &row, nil
}

// Latest returns the newest row of a chain.
func (r *RowRepository) Latest(ctx context.Context, meterID string) (*ledger.Row, error) {
	_ = ctx
	if meterID == "" {
		return nil, ledger.ErrEmptyMeterID
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *ledger.Row
	for _, row := range r.chains[meterID] {
		if latest == nil || row.Date.After(latest.Date) {
			row := row
			latest = &row
		}
	}
	if latest == nil {
		return nil, ledger.ErrRowNotFound
	}
	return latest, nil
}

// ListRange returns rows between from and to inclusive, ordered by date.
func (r *RowRepository) ListRange(ctx context.Context, meterID string, from, to time.Time) ([]ledger.Row, error) {
	_ = ctx
	if meterID == "" {
		return nil, ledger.ErrEmptyMeterID
	}
	from, to = term.Day(from), term.Day(to)
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]ledger.Row, 0)
	for _, row := range r.chains[meterID] {
		if row.Date.Before(from) || row.Date.After(to) {
			continue
		}
		result = append(result, row)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

// Append adds a row to the chain.
func (r *RowRepository) Append(ctx context.Context, row ledger.Row) error {
	_ = ctx
	if err := row.Validate(); err != nil {
		return err
	}
	row.Date = term.Day(row.Date)
	row.Fallback = false

	r.mu.Lock()
	defer r.mu.Unlock()
	chain := r.chains[row.MeterID]
	if _, ok := chain[dayKey(row.Date)]; ok {
		return ledger.ErrRowExists
	}
	if row.IsDayZero() {
		if len(chain) > 0 {
			return ledger.ErrChainSeeded
		}
	} else {
		prev, ok := chain[dayKey(row.Date.AddDate(0, 0, -1))]
		if !ok {
			return ledger.ErrPredecessorMissing
		}
		if err := row.Follows(prev); err != nil {
			return err
		}
	}
	if chain == nil {
		chain = make(map[string]ledger.Row)
		r.chains[row.MeterID] = chain
	}
	chain[dayKey(row.Date)] = row
	return nil
}

// Reset drops a meter's chain.
func (r *RowRepository) Reset(ctx context.Context, meterID string) error {
	_ = ctx
	if meterID == "" {
		return ledger.ErrEmptyMeterID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.chains, meterID)
	return nil
}
