package application

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/buzzn/myBuzzn-backend-sub000/internal/observability/metrics"
	"github.com/buzzn/myBuzzn-backend-sub000/internal/term"
	users "github.com/buzzn/myBuzzn-backend-sub000/internal/users/domain"
)

// rawUnitExponent matches the ledger's raw unit to kWh scale (1e10).
const rawUnitExponent = 10

// LastReadingReader resolves the last reading of a meter-day.
type LastReadingReader interface {
	LastReadingOfDay(ctx context.Context, meterID string, day time.Time) (int64, bool, error)
}

// RatioSource reports the elapsed share of the canonical year starting at start.
type RatioSource interface {
	CalcRatioValues(ctx context.Context, start time.Time) float64
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Estimator projects a meter's consumption for the ongoing support term and the
// saving against the previous term. Values are raw meter units unless noted.
type Estimator struct {
	readings LastReadingReader
	ratio    RatioSource
	clock    Clock
	logger   *log.Logger
}

// NewEstimator constructs an estimator.
func NewEstimator(readings LastReadingReader, ratio RatioSource, clock Clock, logger *log.Logger) (*Estimator, error) {
	if readings == nil {
		return nil, errors.New("saving estimator: nil readings")
	}
	if ratio == nil {
		return nil, errors.New("saving estimator: nil ratio source")
	}
	if clock == nil {
		clock = systemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Estimator{readings: readings, ratio: ratio, clock: clock, logger: logger}, nil
}

// EnergyConsumptionLastTerm is the net consumption of the term before start.
func (e *Estimator) EnergyConsumptionLastTerm(ctx context.Context, meterID string, start time.Time) (int64, bool) {
	start = term.Day(start)
	end, ok := e.lastReading(ctx, meterID, start.AddDate(0, 0, -1))
	if !ok {
		return 0, false
	}
	begin, ok := e.lastReading(ctx, meterID, start.AddDate(-1, 0, 0))
	if !ok {
		return 0, false
	}
	return end - begin, true
}

// EnergyConsumptionOngoingTerm is the net consumption from start until today.
func (e *Estimator) EnergyConsumptionOngoingTerm(ctx context.Context, meterID string, start time.Time) (int64, bool) {
	now, ok := e.lastReading(ctx, meterID, term.Day(e.clock.Now()))
	if !ok {
		return 0, false
	}
	begin, ok := e.lastReading(ctx, meterID, term.Day(start))
	if !ok {
		return 0, false
	}
	return now - begin, true
}

// EstimatedEnergyConsumption projects the ongoing term to its full length using
// the previous term scaled by the share of the canonical year still to come.
func (e *Estimator) EstimatedEnergyConsumption(ctx context.Context, meterID string, start time.Time) (float64, bool) {
	lastTerm, ok := e.EnergyConsumptionLastTerm(ctx, meterID, start)
	if !ok {
		return 0, false
	}
	return e.estimate(ctx, meterID, start, lastTerm)
}

// EstimatedEnergySaving is the previous term's consumption minus the projection.
// Positive values mean the household is projected to consume less.
func (e *Estimator) EstimatedEnergySaving(ctx context.Context, meterID string, start time.Time) (float64, bool) {
	lastTerm, ok := e.EnergyConsumptionLastTerm(ctx, meterID, start)
	if !ok {
		return 0, false
	}
	estimated, ok := e.estimate(ctx, meterID, start, lastTerm)
	if !ok {
		return 0, false
	}
	return float64(lastTerm) - estimated, true
}

func (e *Estimator) estimate(ctx context.Context, meterID string, start time.Time, lastTerm int64) (float64, bool) {
	ongoing, ok := e.EnergyConsumptionOngoingTerm(ctx, meterID, start)
	if !ok {
		return 0, false
	}
	ratio := e.ratio.CalcRatioValues(ctx, start)
	return (1-ratio)*float64(lastTerm) + float64(ongoing), true
}

// Saving is a user's estimated saving in the ongoing support term.
type Saving struct {
	UserID    string
	MeterID   string
	Baseline  int
	Saving    float64
	SavingKWh float64
}

// EstimateSavingForUser estimates the saving of the support term containing today.
func (e *Estimator) EstimateSavingForUser(ctx context.Context, user users.User) (Saving, bool) {
	if !user.HasMeter() {
		metrics.IncSavingEstimate(metrics.ResultNoData)
		return Saving{}, false
	}
	start := term.SupportYearStart(e.clock.Now())
	saving, ok := e.EstimatedEnergySaving(ctx, user.MeterID, start)
	if !ok {
		metrics.IncSavingEstimate(metrics.ResultNoData)
		return Saving{}, false
	}
	metrics.IncSavingEstimate(metrics.ResultSuccess)
	return Saving{
		UserID:    user.ID,
		MeterID:   user.MeterID,
		Baseline:  user.Baseline,
		Saving:    saving,
		SavingKWh: RawToKWh(saving),
	}, true
}

// CommunitySaving is the summed saving of all users with data.
type CommunitySaving struct {
	Saving    float64
	SavingKWh float64
	Users     int
}

// EstimateSavingAllUsers sums the savings of users that have an estimate.
func (e *Estimator) EstimateSavingAllUsers(ctx context.Context, list []users.User) (CommunitySaving, bool) {
	var total CommunitySaving
	for _, user := range list {
		saving, ok := e.EstimateSavingForUser(ctx, user)
		if !ok {
			continue
		}
		total.Saving += saving.Saving
		total.Users++
	}
	if total.Users == 0 {
		return CommunitySaving{}, false
	}
	total.SavingKWh = RawToKWh(total.Saving)
	return total, true
}

func (e *Estimator) lastReading(ctx context.Context, meterID string, day time.Time) (int64, bool) {
	value, ok, err := e.readings.LastReadingOfDay(ctx, meterID, day)
	if err != nil {
		e.logger.Printf("saving: last reading failed: meter=%s day=%s err=%v", meterID, day.Format("2006-01-02"), err)
		metrics.IncSavingEstimate(metrics.ResultError)
		return 0, false
	}
	return value, ok
}

// RawToKWh converts raw meter units to kWh.
func RawToKWh(raw float64) float64 {
	value, _ := decimal.NewFromFloat(raw).Shift(-rawUnitExponent).Float64()
	return value
}
