package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/buzzn/myBuzzn-backend-sub000/internal/metering"
	"github.com/buzzn/myBuzzn-backend-sub000/internal/observability/metrics"
	readings "github.com/buzzn/myBuzzn-backend-sub000/internal/readings/domain"
	"github.com/buzzn/myBuzzn-backend-sub000/internal/term"
	users "github.com/buzzn/myBuzzn-backend-sub000/internal/users/domain"
)

const (
	defaultInterval        = time.Minute
	defaultLookback        = 2 * time.Hour
	defaultInitialLookback = 30 * 24 * time.Hour
	defaultResolution      = "fifteen_minutes"
)

// MeteringAPI is the subset of the metering client the task uses.
type MeteringAPI interface {
	GetReadings(ctx context.Context, meterID string, begin, end int64, resolution string) ([]metering.Reading, error)
	GetDisaggregation(ctx context.Context, meterID string, begin, end int64) ([]metering.Disaggregation, error)
}

// MeterDirectory lists users and groups whose meters are ingested.
type MeterDirectory interface {
	List(ctx context.Context) ([]users.User, error)
	ListGroups(ctx context.Context) ([]users.Group, error)
}

// ReadingSink receives every ingested reading in addition to the cache.
type ReadingSink interface {
	WriteReadings(ctx context.Context, batch []readings.MeterReading) error
}

// Config tunes the ingestion task.
type Config struct {
	Interval        time.Duration
	Lookback        time.Duration
	InitialLookback time.Duration
	Resolution      string
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = defaultInterval
	}
	if c.Lookback <= 0 {
		c.Lookback = defaultLookback
	}
	if c.InitialLookback <= 0 {
		c.InitialLookback = defaultInitialLookback
	}
	if c.Resolution == "" {
		c.Resolution = defaultResolution
	}
	return c
}

// Task copies readings and disaggregation from the metering API into the cache.
type Task struct {
	api       MeteringAPI
	directory MeterDirectory
	store     readings.KeyValueStore
	sink      ReadingSink
	cfg       Config
	logger    *log.Logger

	mu    sync.Mutex
	known map[string]bool
}

// Option configures the task.
type Option func(*Task)

// WithSink mirrors ingested readings to sink.
func WithSink(sink ReadingSink) Option {
	return func(t *Task) { t.sink = sink }
}

// NewTask constructs an ingestion task.
func NewTask(api MeteringAPI, directory MeterDirectory, store readings.KeyValueStore, cfg Config, logger *log.Logger, opts ...Option) (*Task, error) {
	if api == nil {
		return nil, errors.New("ingestion: nil metering api")
	}
	if directory == nil {
		return nil, errors.New("ingestion: nil meter directory")
	}
	if store == nil {
		return nil, errors.New("ingestion: nil store")
	}
	if logger == nil {
		logger = log.Default()
	}
	task := &Task{
		api:       api,
		directory: directory,
		store:     store,
		cfg:       cfg.withDefaults(),
		logger:    logger,
		known:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(task)
	}
	return task, nil
}

// RunResult summarizes one ingestion pass.
type RunResult struct {
	RunID           string
	Meters          int
	Readings        int
	Disaggregations int
	Failed          []string
}

// Start runs the task immediately and then on every interval until ctx is done.
func (t *Task) Start(ctx context.Context) {
	if t == nil {
		return
	}
	t.run(ctx, time.Now().UTC())
	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.run(ctx, now.UTC())
		}
	}
}

func (t *Task) run(ctx context.Context, now time.Time) {
	result, err := t.RunOnce(ctx, now)
	if err != nil {
		t.logger.Printf("ingestion: run failed: run=%s err=%v", result.RunID, err)
		return
	}
	if len(result.Failed) > 0 {
		t.logger.Printf("ingestion: run finished with failures: run=%s meters=%d failed=%v", result.RunID, result.Meters, result.Failed)
	}
}

// RunOnce ingests every known meter. Per-meter failures are logged and reported
// in the result; only a failure to list meters aborts the run.
func (t *Task) RunOnce(ctx context.Context, now time.Time) (RunResult, error) {
	start := time.Now()
	result := RunResult{RunID: uuid.NewString()}

	list, err := t.directory.List(ctx)
	if err != nil {
		metrics.ObserveIngestRun(metrics.ResultError, time.Since(start))
		metrics.IncIngestError("list_users")
		return result, fmt.Errorf("ingestion: list users: %w", err)
	}
	groups, err := t.directory.ListGroups(ctx)
	if err != nil {
		metrics.ObserveIngestRun(metrics.ResultError, time.Since(start))
		metrics.IncIngestError("list_groups")
		return result, fmt.Errorf("ingestion: list groups: %w", err)
	}

	meterIDs := users.MeterIDs(list, groups)
	result.Meters = len(meterIDs)
	for _, meterID := range meterIDs {
		if err := ctx.Err(); err != nil {
			metrics.ObserveIngestRun(metrics.ResultError, time.Since(start))
			return result, err
		}
		stored, disaggregated, err := t.ingestMeter(ctx, meterID, now)
		result.Readings += stored
		result.Disaggregations += disaggregated
		if err != nil {
			result.Failed = append(result.Failed, meterID)
			t.logger.Printf("ingestion: meter failed: run=%s meter=%s err=%v", result.RunID, meterID, err)
		}
	}

	outcome := metrics.ResultSuccess
	if len(result.Failed) > 0 {
		outcome = metrics.ResultError
	}
	metrics.ObserveIngestRun(outcome, time.Since(start))
	metrics.AddIngestedEntries(string(readings.EntryTypeReading), result.Readings)
	metrics.AddIngestedEntries(string(readings.EntryTypeDisaggregation), result.Disaggregations)
	return result, nil
}

func (t *Task) ingestMeter(ctx context.Context, meterID string, now time.Time) (int, int, error) {
	lookback, err := t.lookback(ctx, meterID)
	if err != nil {
		metrics.IncIngestError("cache")
		return 0, 0, err
	}
	begin, end := term.Millis(now.Add(-lookback)), term.Millis(now)

	fetched, err := t.api.GetReadings(ctx, meterID, begin, end, t.cfg.Resolution)
	if err != nil && !errors.Is(err, metering.ErrNotFound) {
		metrics.IncIngestError("metering_readings")
		return 0, 0, err
	}

	batch := make([]readings.MeterReading, 0, len(fetched))
	for _, item := range fetched {
		reading, err := readings.ReadingFromValues(item.Values)
		if err != nil {
			metrics.IncIngestError("malformed_reading")
			t.logger.Printf("ingestion: skip reading: meter=%s time=%s err=%v", meterID, item.Time.Format(readings.TimestampLayout), err)
			continue
		}
		raw, err := readings.EncodeEntry(reading)
		if err != nil {
			return len(batch), 0, err
		}
		if err := t.store.Set(ctx, readings.ReadingKey(meterID, item.Time), raw); err != nil {
			metrics.IncIngestError("cache")
			return len(batch), 0, err
		}
		batch = append(batch, readings.MeterReading{MeterID: meterID, At: item.Time, Reading: reading})
	}

	if t.sink != nil && len(batch) > 0 {
		if err := t.sink.WriteReadings(ctx, batch); err != nil {
			metrics.IncIngestError("sink")
			t.logger.Printf("ingestion: sink write failed: meter=%s err=%v", meterID, err)
		}
	}

	disaggregation, err := t.api.GetDisaggregation(ctx, meterID, begin, end)
	if errors.Is(err, metering.ErrNotFound) {
		t.markKnown(meterID)
		return len(batch), 0, nil
	}
	if err != nil {
		metrics.IncIngestError("metering_disaggregation")
		return len(batch), 0, err
	}
	written := 0
	for _, item := range disaggregation {
		raw, err := readings.EncodeEntry(readings.Disaggregation{Appliances: item.Appliances})
		if err != nil {
			return len(batch), written, err
		}
		// A reading at the same timestamp keeps the key.
		ok, err := t.store.SetIfAbsent(ctx, readings.ReadingKey(meterID, item.Time), raw)
		if err != nil {
			metrics.IncIngestError("cache")
			return len(batch), written, err
		}
		if ok {
			written++
		}
	}
	t.markKnown(meterID)
	return len(batch), written, nil
}

// lookback picks the initial window for meters with nothing cached yet. The
// cache is consulted once per meter; after a successful pass the meter is
// remembered and later ticks use the regular window without touching the cache.
func (t *Task) lookback(ctx context.Context, meterID string) (time.Duration, error) {
	t.mu.Lock()
	known := t.known[meterID]
	t.mu.Unlock()
	if known {
		return t.cfg.Lookback, nil
	}
	cached, err := t.store.HasPrefix(ctx, readings.MeterPrefix(meterID))
	if err != nil {
		return 0, err
	}
	if cached {
		return t.cfg.Lookback, nil
	}
	return t.cfg.InitialLookback, nil
}

func (t *Task) markKnown(meterID string) {
	t.mu.Lock()
	if t.known == nil {
		t.known = make(map[string]bool)
	}
	t.known[meterID] = true
	t.mu.Unlock()
}
