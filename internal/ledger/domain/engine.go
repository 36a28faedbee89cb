package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/buzzn/myBuzzn-backend-sub000/internal/term"
)

const (
	// RawUnitsPerKWh converts cumulative meter energy to kWh. It matches the
	// metering API unit scale of this deployment and must not be changed without
	// confirming that scale against production data.
	RawUnitsPerKWh = 1e10

	rawUnitExponent = 10
)

// BoundaryReader resolves first/last readings of a meter-day.
type BoundaryReader interface {
	FirstReadingOfDay(ctx context.Context, meterID string, day time.Time) (int64, bool, error)
	LastReadingOfDay(ctx context.Context, meterID string, day time.Time) (int64, bool, error)
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Engine derives ledger rows. It never writes.
type Engine struct {
	readings BoundaryReader
	rows     RowReader
	clock    Clock
}

// NewEngine constructs an engine.
func NewEngine(readings BoundaryReader, rows RowReader, clock Clock) (*Engine, error) {
	if readings == nil {
		return nil, errors.New("ledger engine: nil boundary reader")
	}
	if rows == nil {
		return nil, errors.New("ledger engine: nil row reader")
	}
	if clock == nil {
		clock = systemClock{}
	}
	return &Engine{readings: readings, rows: rows, clock: clock}, nil
}

// DefineBaseValues builds the day-zero row dated the day before date.
func (e *Engine) DefineBaseValues(meterID string, inhabitants int, date time.Time) (Row, error) {
	if err := e.checkInput(meterID, inhabitants, date); err != nil {
		return Row{}, err
	}
	return Row{
		Date:        term.Day(date).AddDate(0, 0, -1),
		MeterID:     meterID,
		Inhabitants: inhabitants,
	}, nil
}

// Extend derives the row for date from the stored row of the previous day.
func (e *Engine) Extend(ctx context.Context, meterID string, inhabitants int, date time.Time) (Row, error) {
	if err := e.checkInput(meterID, inhabitants, date); err != nil {
		return Row{}, err
	}
	day := term.Day(date)

	prior, err := e.rows.Get(ctx, meterID, day.AddDate(0, 0, -1))
	if errors.Is(err, ErrRowNotFound) {
		return Row{}, ErrPredecessorMissing
	}
	if err != nil {
		return Row{}, fmt.Errorf("ledger engine: load predecessor: %w", err)
	}

	consumption, measured, err := e.consumption(ctx, meterID, day)
	if err != nil {
		return Row{}, err
	}
	if !measured {
		consumption = prior.MovingAverage * float64(inhabitants)
	}

	perCapita := consumption / float64(inhabitants)
	row := Row{
		Date:                          day,
		MeterID:                       meterID,
		Consumption:                   consumption,
		ConsumptionCumulated:          prior.ConsumptionCumulated + consumption,
		Inhabitants:                   inhabitants,
		PerCapitaConsumption:          perCapita,
		PerCapitaConsumptionCumulated: prior.PerCapitaConsumptionCumulated + perCapita,
		Days:                          prior.Days + 1,
		Fallback:                      !measured,
	}
	row.MovingAverage = row.PerCapitaConsumptionCumulated / float64(row.Days)
	row.MovingAverageAnnualized = Annualize(row.MovingAverage)
	return row, nil
}

// consumption reports false when no delta can be measured for the day.
func (e *Engine) consumption(ctx context.Context, meterID string, day time.Time) (float64, bool, error) {
	last, ok, err := e.readings.LastReadingOfDay(ctx, meterID, day)
	if err != nil {
		return 0, false, fmt.Errorf("ledger engine: last reading: %w", err)
	}
	if !ok {
		last, ok, err = e.readings.FirstReadingOfDay(ctx, meterID, day.AddDate(0, 0, 1))
		if err != nil {
			return 0, false, fmt.Errorf("ledger engine: next day first reading: %w", err)
		}
		if !ok {
			return 0, false, nil
		}
	}

	first, ok, err := e.readings.FirstReadingOfDay(ctx, meterID, day)
	if err != nil {
		return 0, false, fmt.Errorf("ledger engine: first reading: %w", err)
	}
	if !ok {
		first, ok, err = e.readings.LastReadingOfDay(ctx, meterID, day.AddDate(0, 0, -1))
		if err != nil {
			return 0, false, fmt.Errorf("ledger engine: previous day last reading: %w", err)
		}
		if !ok {
			return 0, false, nil
		}
	}
	return RawToKWh(last - first), true, nil
}

func (e *Engine) checkInput(meterID string, inhabitants int, date time.Time) error {
	if meterID == "" {
		return ErrEmptyMeterID
	}
	if date.IsZero() {
		return ErrInvalidDate
	}
	if inhabitants <= 0 {
		return ErrInvalidInhabitants
	}
	if term.After(date, e.clock.Now()) {
		return ErrFutureDate
	}
	return nil
}

// RawToKWh converts a raw energy delta to kWh without binary rounding error.
func RawToKWh(raw int64) float64 {
	value, _ := decimal.NewFromInt(raw).Shift(-rawUnitExponent).Float64()
	return value
}
