package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/buzzn/myBuzzn-backend-sub000/internal/metering"
	readings "github.com/buzzn/myBuzzn-backend-sub000/internal/readings/domain"
	readingsmemory "github.com/buzzn/myBuzzn-backend-sub000/internal/readings/infrastructure/memory"
	users "github.com/buzzn/myBuzzn-backend-sub000/internal/users/domain"
	usersmemory "github.com/buzzn/myBuzzn-backend-sub000/internal/users/infrastructure/memory"
)

type call struct {
	meterID    string
	begin, end int64
}

type fakeAPI struct {
	mu             sync.Mutex
	readings       map[string][]metering.Reading
	disaggregation map[string][]metering.Disaggregation
	failMeter      string
	calls          []call
}

func (f *fakeAPI) GetReadings(ctx context.Context, meterID string, begin, end int64, resolution string) ([]metering.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{meterID: meterID, begin: begin, end: end})
	if meterID == f.failMeter {
		return nil, errors.New("metering: http 502")
	}
	if _, ok := f.readings[meterID]; !ok {
		return nil, metering.ErrNotFound
	}
	return f.readings[meterID], nil
}

func (f *fakeAPI) GetDisaggregation(ctx context.Context, meterID string, begin, end int64) ([]metering.Disaggregation, error) {
	items, ok := f.disaggregation[meterID]
	if !ok {
		return nil, metering.ErrNotFound
	}
	return items, nil
}

type recordingSink struct {
	batches [][]readings.MeterReading
}

func (s *recordingSink) WriteReadings(ctx context.Context, batch []readings.MeterReading) error {
	s.batches = append(s.batches, batch)
	return nil
}

func values(energy string) map[string]json.Number {
	return map[string]json.Number{"energy": json.Number(energy), "power": "1200"}
}

func TestTask_RunOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2020, 2, 7, 12, 0, 0, 0, time.UTC)
	ts1 := time.Date(2020, 2, 7, 11, 0, 0, 0, time.UTC)
	ts2 := time.Date(2020, 2, 7, 11, 15, 0, 0, time.UTC)

	directory := usersmemory.NewRepository()
	directory.PutUser(users.User{ID: "1", MeterID: "m1", Inhabitants: 2})
	directory.PutUser(users.User{ID: "2", MeterID: "broken"})
	directory.PutGroup(users.Group{ID: "g1", GroupMeterID: "group-meter"})

	api := &fakeAPI{
		readings: map[string][]metering.Reading{
			"m1": {
				{Time: ts1, Values: values("198360858657000")},
				{Time: ts2, Values: map[string]json.Number{"power": "5"}},
			},
			"group-meter": {{Time: ts1, Values: values("1000")}},
		},
		disaggregation: map[string][]metering.Disaggregation{
			"m1": {
				{Time: ts1, Appliances: map[string]float64{"Fridge": 40}},
				{Time: ts1.Add(5 * time.Minute), Appliances: map[string]float64{"Fridge": 42}},
			},
		},
		failMeter: "broken",
	}
	store := readingsmemory.NewStore()
	sink := &recordingSink{}
	var logs bytes.Buffer

	task, err := NewTask(api, directory, store, Config{Lookback: time.Hour, InitialLookback: 24 * time.Hour}, log.New(&logs, "", 0), WithSink(sink))
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	result, err := task.RunOnce(ctx, now)
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if result.RunID == "" || result.Meters != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Readings != 2 || result.Disaggregations != 1 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if len(result.Failed) != 1 || result.Failed[0] != "broken" {
		t.Fatalf("expected broken meter to fail alone: %+v", result.Failed)
	}

	raw, ok, _ := store.Get(ctx, readings.ReadingKey("m1", ts1))
	if !ok {
		t.Fatalf("expected reading key")
	}
	entry, err := readings.DecodeEntry(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if reading, isReading := entry.(readings.Reading); !isReading || reading.Energy != 198360858657000 {
		t.Fatalf("reading must win over disaggregation at the same timestamp: %+v", entry)
	}
	if _, ok, _ := store.Get(ctx, readings.ReadingKey("m1", ts1.Add(5*time.Minute))); !ok {
		t.Fatalf("expected disaggregation key")
	}
	if len(sink.batches) != 2 {
		t.Fatalf("expected a sink batch per meter with readings, got %d", len(sink.batches))
	}

	for _, c := range api.calls {
		if c.end != now.UnixMilli() || c.begin != now.Add(-24*time.Hour).UnixMilli() {
			t.Fatalf("first run must use initial lookback: %+v", c)
		}
	}

	api.calls = nil
	if _, err := task.RunOnce(ctx, now.Add(time.Hour)); err != nil {
		t.Fatalf("second run: %v", err)
	}
	for _, c := range api.calls {
		if c.meterID == "m1" && c.begin != now.UnixMilli() {
			t.Fatalf("second run must use regular lookback: %+v", c)
		}
	}
}

type failingDirectory struct{}

func (failingDirectory) List(context.Context) ([]users.User, error) {
	return nil, errors.New("db down")
}

func (failingDirectory) ListGroups(context.Context) ([]users.Group, error) { return nil, nil }

func TestTask_RunOnceDirectoryFailure(t *testing.T) {
	task, err := NewTask(&fakeAPI{}, failingDirectory{}, readingsmemory.NewStore(), Config{}, nil)
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	result, err := task.RunOnce(context.Background(), time.Now())
	if err == nil {
		t.Fatalf("expected directory failure")
	}
	if result.RunID == "" {
		t.Fatalf("expected run id even on failure")
	}
}

func TestTask_StartStopsOnCancel(t *testing.T) {
	task, err := NewTask(&fakeAPI{}, usersmemory.NewRepository(), readingsmemory.NewStore(), Config{Interval: time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		task.Start(ctx)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("task did not stop")
	}
}

type countingStore struct {
	*readingsmemory.Store
	mu    sync.Mutex
	scans int
	has   map[string]int
}

func (s *countingStore) ScanPrefix(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	s.scans++
	s.mu.Unlock()
	return s.Store.ScanPrefix(ctx, prefix)
}

func (s *countingStore) HasPrefix(ctx context.Context, prefix string) (bool, error) {
	s.mu.Lock()
	s.has[prefix]++
	s.mu.Unlock()
	return s.Store.HasPrefix(ctx, prefix)
}

func TestTask_CacheCheckedOncePerMeter(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2020, 2, 7, 12, 0, 0, 0, time.UTC)

	directory := usersmemory.NewRepository()
	directory.PutUser(users.User{ID: "1", MeterID: "cached"})
	directory.PutUser(users.User{ID: "2", MeterID: "fresh"})
	directory.PutUser(users.User{ID: "3", MeterID: "broken"})

	store := &countingStore{Store: readingsmemory.NewStore(), has: make(map[string]int)}
	if err := store.Set(ctx, readings.ReadingKey("cached", now.Add(-48*time.Hour)), "{}"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	api := &fakeAPI{
		readings:  map[string][]metering.Reading{"cached": {{Time: now.Add(-time.Minute), Values: values("1000")}}},
		failMeter: "broken",
	}
	task, err := NewTask(api, directory, store, Config{Lookback: time.Hour, InitialLookback: 24 * time.Hour}, log.New(&bytes.Buffer{}, "", 0))
	if err != nil {
		t.Fatalf("new task: %v", err)
	}

	for i := 0; i < 3; i++ {
		api.calls = nil
		tick := now.Add(time.Duration(i) * time.Minute)
		if _, err := task.RunOnce(ctx, tick); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		for _, c := range api.calls {
			want := tick.Add(-time.Hour).UnixMilli()
			if i == 0 && c.meterID != "cached" {
				want = tick.Add(-24 * time.Hour).UnixMilli()
			}
			if c.meterID == "broken" {
				want = tick.Add(-24 * time.Hour).UnixMilli()
			}
			if c.begin != want {
				t.Fatalf("run %d meter %s: begin=%d want=%d", i, c.meterID, c.begin, want)
			}
		}
	}

	if store.scans != 0 {
		t.Fatalf("expected no full key scans, got %d", store.scans)
	}
	if store.has[readings.MeterPrefix("cached")] != 1 || store.has[readings.MeterPrefix("fresh")] != 1 {
		t.Fatalf("expected a single cache check per ingested meter: %v", store.has)
	}
	if store.has[readings.MeterPrefix("broken")] != 3 {
		t.Fatalf("expected failing meter to be re-checked every run: %v", store.has)
	}
}
