package application

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"
	"time"

	readings "github.com/buzzn/myBuzzn-backend-sub000/internal/readings/domain"
	"github.com/buzzn/myBuzzn-backend-sub000/internal/readings/infrastructure/memory"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

const meterID = "b4234cd4bed143a6b9bd09e347e17d34"

func putReading(t *testing.T, store *memory.Store, ts time.Time, energy int64) {
	t.Helper()
	raw, err := readings.EncodeEntry(readings.Reading{Energy: energy})
	if err != nil {
		t.Fatalf("encode reading: %v", err)
	}
	if err := store.Set(context.Background(), readings.ReadingKey(meterID, ts), raw); err != nil {
		t.Fatalf("set reading: %v", err)
	}
}

func putDisaggregation(t *testing.T, store *memory.Store, ts time.Time) {
	t.Helper()
	raw, err := readings.EncodeEntry(readings.Disaggregation{Appliances: map[string]float64{"Fridge": 40}})
	if err != nil {
		t.Fatalf("encode disaggregation: %v", err)
	}
	if err := store.Set(context.Background(), readings.ReadingKey(meterID, ts), raw); err != nil {
		t.Fatalf("set disaggregation: %v", err)
	}
}

func newReader(t *testing.T, store *memory.Store, now time.Time) (*DayBoundaryReader, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	reader, err := NewDayBoundaryReader(store, fixedClock{now: now}, log.New(&buf, "", 0))
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	return reader, &buf
}

func TestDayBoundaryReader_FirstAndLast(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	day := time.Date(2020, 3, 9, 0, 0, 0, 0, time.UTC)

	putDisaggregation(t, store, day)
	putReading(t, store, day.Add(15*time.Minute), 100)
	putReading(t, store, day.Add(12*time.Hour), 150)
	putReading(t, store, day.Add(23*time.Hour+45*time.Minute), 200)
	putDisaggregation(t, store, day.Add(23*time.Hour+59*time.Minute))
	putReading(t, store, day.AddDate(0, 0, 1), 999)

	reader, _ := newReader(t, store, day.AddDate(0, 0, 5))

	first, ok, err := reader.FirstReadingOfDay(ctx, meterID, day.Add(8*time.Hour))
	if err != nil || !ok {
		t.Fatalf("first reading: ok=%v err=%v", ok, err)
	}
	if first != 100 {
		t.Fatalf("first reading mismatch: %d", first)
	}

	last, ok, err := reader.LastReadingOfDay(ctx, meterID, day)
	if err != nil || !ok {
		t.Fatalf("last reading: ok=%v err=%v", ok, err)
	}
	if last != 200 {
		t.Fatalf("last reading mismatch: %d", last)
	}

	if _, ok, _ := store.Get(ctx, readings.FirstMemoKey(meterID, day)); !ok {
		t.Fatalf("expected first memo to be written")
	}
	if _, ok, _ := store.Get(ctx, readings.LastMemoKey(meterID, day)); !ok {
		t.Fatalf("expected last memo to be written")
	}
}

func TestDayBoundaryReader_MemoIsServedWithoutScan(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	day := time.Date(2020, 3, 9, 0, 0, 0, 0, time.UTC)
	putReading(t, store, day.Add(time.Hour), 100)

	reader, _ := newReader(t, store, day.AddDate(0, 0, 1))
	if _, _, err := reader.FirstReadingOfDay(ctx, meterID, day); err != nil {
		t.Fatalf("first reading: %v", err)
	}

	// A later backfill is not reflected once memoized.
	putReading(t, store, day.Add(30*time.Minute), 50)
	first, ok, err := reader.FirstReadingOfDay(ctx, meterID, day)
	if err != nil || !ok {
		t.Fatalf("first reading: ok=%v err=%v", ok, err)
	}
	if first != 100 {
		t.Fatalf("expected memoized value 100, got %d", first)
	}
}

func TestDayBoundaryReader_CurrentDayNotMemoized(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	day := time.Date(2020, 3, 9, 0, 0, 0, 0, time.UTC)
	putReading(t, store, day.Add(time.Hour), 100)

	reader, _ := newReader(t, store, day.Add(10*time.Hour))
	last, ok, err := reader.LastReadingOfDay(ctx, meterID, day)
	if err != nil || !ok || last != 100 {
		t.Fatalf("last reading: value=%d ok=%v err=%v", last, ok, err)
	}
	if _, ok, _ := store.Get(ctx, readings.LastMemoKey(meterID, day)); ok {
		t.Fatalf("open day must not be memoized")
	}

	putReading(t, store, day.Add(9*time.Hour), 180)
	last, _, _ = reader.LastReadingOfDay(ctx, meterID, day)
	if last != 180 {
		t.Fatalf("expected fresh last reading 180, got %d", last)
	}
}

func TestDayBoundaryReader_NoReadings(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	day := time.Date(2020, 3, 9, 0, 0, 0, 0, time.UTC)
	putDisaggregation(t, store, day.Add(time.Hour))

	reader, _ := newReader(t, store, day.AddDate(0, 0, 1))
	if _, ok, err := reader.FirstReadingOfDay(ctx, meterID, day); err != nil || ok {
		t.Fatalf("expected no reading, ok=%v err=%v", ok, err)
	}
	if _, ok, _ := store.Get(ctx, readings.FirstMemoKey(meterID, day)); ok {
		t.Fatalf("absence must not be memoized")
	}
}

func TestDayBoundaryReader_MalformedEntriesAreSkipped(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	day := time.Date(2020, 3, 9, 0, 0, 0, 0, time.UTC)
	if err := store.Set(ctx, readings.ReadingKey(meterID, day.Add(time.Minute)), "{broken"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	putReading(t, store, day.Add(time.Hour), 100)
	if err := store.Set(ctx, readings.LastMemoKey(meterID, day), "also broken"); err != nil {
		t.Fatalf("seed memo: %v", err)
	}

	reader, logs := newReader(t, store, day.AddDate(0, 0, 1))
	first, ok, err := reader.FirstReadingOfDay(ctx, meterID, day)
	if err != nil || !ok || first != 100 {
		t.Fatalf("first reading: value=%d ok=%v err=%v", first, ok, err)
	}
	last, ok, err := reader.LastReadingOfDay(ctx, meterID, day)
	if err != nil || !ok || last != 100 {
		t.Fatalf("last reading: value=%d ok=%v err=%v", last, ok, err)
	}
	if logs.Len() == 0 {
		t.Fatalf("expected malformed entries to be logged")
	}
}

type failingStore struct {
	*memory.Store
}

func (failingStore) ScanPrefix(context.Context, string) ([]string, error) {
	return nil, errors.New("connection refused")
}

func TestDayBoundaryReader_StoreFailure(t *testing.T) {
	reader, err := NewDayBoundaryReader(failingStore{memory.NewStore()}, nil, nil)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	if _, _, err := reader.LastReadingOfDay(context.Background(), meterID, time.Now()); err == nil {
		t.Fatalf("expected store failure to surface")
	}
}

func TestDayBoundaryReader_FirstReadingDate(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	putDisaggregation(t, store, time.Date(2020, 1, 31, 23, 0, 0, 0, time.UTC))
	putReading(t, store, time.Date(2020, 2, 1, 6, 0, 0, 0, time.UTC), 1)
	putReading(t, store, time.Date(2020, 3, 1, 6, 0, 0, 0, time.UTC), 2)

	reader, _ := newReader(t, store, time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC))
	day, ok, err := reader.FirstReadingDate(ctx, meterID)
	if err != nil || !ok {
		t.Fatalf("first reading date: ok=%v err=%v", ok, err)
	}
	if want := time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC); !day.Equal(want) {
		t.Fatalf("first reading date: got=%s want=%s", day, want)
	}
}
