package ledger

import (
	"context"
	"time"
)

// RowReader loads single ledger rows.
type RowReader interface {
	// Get returns ErrRowNotFound when no row exists for the meter and day.
	Get(ctx context.Context, meterID string, date time.Time) (*Row, error)
}

// Repository persists the append-only ledger chain.
//
// Append must reject a day-zero row for a non-empty chain (ErrChainSeeded), any
// other row whose predecessor is absent (ErrPredecessorMissing) or does not
// match (ErrBrokenChain), and any row for an existing day (ErrRowExists).
type Repository interface {
	RowReader
	// Latest returns the most recent row of the chain or ErrRowNotFound.
	Latest(ctx context.Context, meterID string) (*Row, error)
	// ListRange returns rows with from <= date <= to, ordered by date.
	ListRange(ctx context.Context, meterID string, from, to time.Time) ([]Row, error)
	Append(ctx context.Context, row Row) error
	// Reset removes the meter's chain; administrative use only.
	Reset(ctx context.Context, meterID string) error
}
