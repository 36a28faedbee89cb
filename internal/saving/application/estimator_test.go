package application

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"
	"time"

	users "github.com/buzzn/myBuzzn-backend-sub000/internal/users/domain"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type lastReadings struct {
	values map[string]int64
	err    error
}

func (r lastReadings) LastReadingOfDay(ctx context.Context, meterID string, day time.Time) (int64, bool, error) {
	if r.err != nil {
		return 0, false, r.err
	}
	value, ok := r.values[meterID+"/"+day.Format("2006-01-02")]
	return value, ok, nil
}

type fixedRatio float64

func (r fixedRatio) CalcRatioValues(context.Context, time.Time) float64 { return float64(r) }

const kWh = int64(10_000_000_000)

var (
	now   = time.Date(2020, 6, 1, 14, 0, 0, 0, time.UTC)
	start = time.Date(2020, 3, 12, 0, 0, 0, 0, time.UTC)
)

func termReadings(meterID string) map[string]int64 {
	return map[string]int64{
		meterID + "/2019-03-12": 0,
		meterID + "/2020-03-11": 3000 * kWh,
		meterID + "/2020-03-12": 3010 * kWh,
		meterID + "/2020-06-01": 3810 * kWh,
	}
}

func newEstimator(t *testing.T, reader lastReadings, logger *log.Logger) *Estimator {
	t.Helper()
	estimator, err := NewEstimator(reader, fixedRatio(0.25), fixedClock{now: now}, logger)
	if err != nil {
		t.Fatalf("new estimator: %v", err)
	}
	return estimator
}

func TestEstimator_Terms(t *testing.T) {
	ctx := context.Background()
	estimator := newEstimator(t, lastReadings{values: termReadings("m1")}, nil)

	lastTerm, ok := estimator.EnergyConsumptionLastTerm(ctx, "m1", start)
	if !ok || lastTerm != 3000*kWh {
		t.Fatalf("last term: value=%d ok=%v", lastTerm, ok)
	}
	ongoing, ok := estimator.EnergyConsumptionOngoingTerm(ctx, "m1", start)
	if !ok || ongoing != 800*kWh {
		t.Fatalf("ongoing term: value=%d ok=%v", ongoing, ok)
	}
	estimated, ok := estimator.EstimatedEnergyConsumption(ctx, "m1", start)
	if !ok || estimated != float64(3050*kWh) {
		t.Fatalf("estimated consumption: value=%v ok=%v", estimated, ok)
	}
	saving, ok := estimator.EstimatedEnergySaving(ctx, "m1", start)
	if !ok || saving != float64(-50*kWh) {
		t.Fatalf("estimated saving: value=%v ok=%v", saving, ok)
	}
}

func TestEstimator_MissingReadingPropagates(t *testing.T) {
	ctx := context.Background()
	values := termReadings("m1")
	delete(values, "m1/2019-03-12")
	estimator := newEstimator(t, lastReadings{values: values}, nil)

	if _, ok := estimator.EnergyConsumptionLastTerm(ctx, "m1", start); ok {
		t.Fatalf("last term must be unavailable")
	}
	if _, ok := estimator.EnergyConsumptionOngoingTerm(ctx, "m1", start); !ok {
		t.Fatalf("ongoing term must still be available")
	}
	if _, ok := estimator.EstimatedEnergyConsumption(ctx, "m1", start); ok {
		t.Fatalf("estimated consumption must be unavailable")
	}
	if _, ok := estimator.EstimatedEnergySaving(ctx, "m1", start); ok {
		t.Fatalf("estimated saving must be unavailable")
	}
}

func TestEstimator_StoreFailureDegrades(t *testing.T) {
	var buf bytes.Buffer
	estimator := newEstimator(t, lastReadings{err: errors.New("cache down")}, log.New(&buf, "", 0))
	if _, ok := estimator.EstimatedEnergySaving(context.Background(), "m1", start); ok {
		t.Fatalf("expected no estimate on store failure")
	}
	if buf.Len() == 0 {
		t.Fatalf("expected failure to be logged")
	}
}

func TestEstimator_Users(t *testing.T) {
	ctx := context.Background()
	values := termReadings("m1")
	for k, v := range termReadings("m2") {
		values[k] = v / 2
	}
	estimator := newEstimator(t, lastReadings{values: values}, nil)

	saving, ok := estimator.EstimateSavingForUser(ctx, users.User{ID: "1", MeterID: "m1", Baseline: 3000})
	if !ok {
		t.Fatalf("expected estimate")
	}
	if saving.SavingKWh != -50 || saving.Baseline != 3000 {
		t.Fatalf("unexpected saving: %+v", saving)
	}
	if _, ok := estimator.EstimateSavingForUser(ctx, users.User{ID: "3"}); ok {
		t.Fatalf("user without meter must have no estimate")
	}

	community, ok := estimator.EstimateSavingAllUsers(ctx, []users.User{
		{ID: "1", MeterID: "m1"},
		{ID: "2", MeterID: "m2"},
		{ID: "3", MeterID: "m3"},
	})
	if !ok {
		t.Fatalf("expected community estimate")
	}
	if community.Users != 2 || community.SavingKWh != -75 {
		t.Fatalf("unexpected community saving: %+v", community)
	}

	if _, ok := estimator.EstimateSavingAllUsers(ctx, []users.User{{ID: "3", MeterID: "m3"}}); ok {
		t.Fatalf("expected no community estimate without data")
	}
}
