package ledger

import (
	"fmt"
	"math"
	"time"

	"github.com/buzzn/myBuzzn-backend-sub000/internal/term"
)

const (
	// DaysPerYear annualizes the moving average.
	DaysPerYear = 365

	floatTolerance = 1e-9
)

// Row is one day of a meter's per-capita consumption ledger. Rows form an
// append-only chain keyed by (MeterID, Date); each row is derived from the row
// of the previous day. The chain starts with a day-zero row where Days == 0.
type Row struct {
	Date                          time.Time
	MeterID                       string
	Consumption                   float64
	ConsumptionCumulated          float64
	Inhabitants                   int
	PerCapitaConsumption          float64
	PerCapitaConsumptionCumulated float64
	Days                          int
	MovingAverage                 float64
	MovingAverageAnnualized       int

	// Fallback marks a row whose consumption was derived from the prior moving
	// average because readings were missing. It is not persisted.
	Fallback bool
}

// IsDayZero reports whether the row seeds a chain.
func (r Row) IsDayZero() bool { return r.Days == 0 }

// Validate checks the row's own invariants.
func (r Row) Validate() error {
	if r.MeterID == "" {
		return ErrEmptyMeterID
	}
	if r.Date.IsZero() {
		return ErrInvalidDate
	}
	if r.Inhabitants <= 0 {
		return ErrInvalidInhabitants
	}
	if r.Days < 0 {
		return fmt.Errorf("%w: negative days", ErrBrokenChain)
	}
	if r.Days > 0 {
		if !approxEqual(r.MovingAverage, r.PerCapitaConsumptionCumulated/float64(r.Days)) {
			return fmt.Errorf("%w: moving average", ErrBrokenChain)
		}
		if r.MovingAverageAnnualized != Annualize(r.MovingAverage) {
			return fmt.Errorf("%w: annualized moving average", ErrBrokenChain)
		}
	}
	return nil
}

// Follows checks that r is the direct successor of prev.
func (r Row) Follows(prev Row) error {
	if r.MeterID != prev.MeterID {
		return fmt.Errorf("%w: meter mismatch", ErrBrokenChain)
	}
	if !term.Day(r.Date).Equal(term.Day(prev.Date).AddDate(0, 0, 1)) {
		return fmt.Errorf("%w: date gap", ErrBrokenChain)
	}
	if r.Days != prev.Days+1 {
		return fmt.Errorf("%w: days", ErrBrokenChain)
	}
	if !approxEqual(r.ConsumptionCumulated, prev.ConsumptionCumulated+r.Consumption) {
		return fmt.Errorf("%w: consumption cumulated", ErrBrokenChain)
	}
	if !approxEqual(r.PerCapitaConsumptionCumulated, prev.PerCapitaConsumptionCumulated+r.PerCapitaConsumption) {
		return fmt.Errorf("%w: per capita cumulated", ErrBrokenChain)
	}
	return nil
}

// Annualize projects a daily moving average to a 365-day year, rounding half to even.
func Annualize(movingAverage float64) int {
	return int(math.RoundToEven(movingAverage * DaysPerYear))
}

func approxEqual(a, b float64) bool {
	diff := math.Abs(a - b)
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return diff <= floatTolerance*scale
}
