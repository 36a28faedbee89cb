package ledger

import "errors"

var (
	// ErrEmptyMeterID is returned when a meter id is empty.
	ErrEmptyMeterID = errors.New("ledger: empty meter id")
	// ErrInvalidDate is returned when a ledger date is zero.
	ErrInvalidDate = errors.New("ledger: invalid date")
	// ErrFutureDate is returned when a ledger day lies after today.
	ErrFutureDate = errors.New("ledger: date in the future")
	// ErrInvalidInhabitants is returned when the inhabitant count is unknown or not positive.
	ErrInvalidInhabitants = errors.New("ledger: invalid inhabitants")
	// ErrPredecessorMissing is returned when the row for the previous day does not exist.
	ErrPredecessorMissing = errors.New("ledger: predecessor row missing")
	// ErrRowNotFound is returned when a ledger row cannot be found.
	ErrRowNotFound = errors.New("ledger: row not found")
	// ErrRowExists guards the append-only chain against rewrites.
	ErrRowExists = errors.New("ledger: row already exists")
	// ErrChainSeeded is returned when a day-zero row is appended to a non-empty chain.
	ErrChainSeeded = errors.New("ledger: chain already seeded")
	// ErrBrokenChain is returned when a row does not follow its predecessor.
	ErrBrokenChain = errors.New("ledger: row does not follow predecessor")
	// ErrNilRow is returned when saving a nil row.
	ErrNilRow = errors.New("ledger: nil row")
)

// IsRejection reports whether err is an expected refusal (invalid input or missing
// data) rather than a backing store failure.
func IsRejection(err error) bool {
	return errors.Is(err, ErrFutureDate) ||
		errors.Is(err, ErrInvalidInhabitants) ||
		errors.Is(err, ErrPredecessorMissing) ||
		errors.Is(err, ErrEmptyMeterID) ||
		errors.Is(err, ErrInvalidDate)
}
