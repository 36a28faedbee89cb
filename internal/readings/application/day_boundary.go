package application

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/buzzn/myBuzzn-backend-sub000/internal/observability/metrics"
	readings "github.com/buzzn/myBuzzn-backend-sub000/internal/readings/domain"
	"github.com/buzzn/myBuzzn-backend-sub000/internal/term"
)

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now in UTC.
type SystemClock struct{}

// Now returns current time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

type boundaryKind string

const (
	boundaryFirst boundaryKind = "first"
	boundaryLast  boundaryKind = "last"
)

// DayBoundaryReader resolves the first and last reading of a meter-day from the cache,
// memoizing the result under "{meter}_{day}_first|_last".
//
// Memos are written only for closed days, those before the clock's current UTC day.
// This departs from memoizing on first computation: the open day is rescanned on
// every call, so readings ingested later that day are still picked up. A closed
// day is served from its memo once written, even if a backfill lands afterwards.
type DayBoundaryReader struct {
	store  readings.KeyValueStore
	clock  Clock
	logger *log.Logger
}

// NewDayBoundaryReader constructs a reader.
func NewDayBoundaryReader(store readings.KeyValueStore, clock Clock, logger *log.Logger) (*DayBoundaryReader, error) {
	if store == nil {
		return nil, errors.New("day boundary reader: nil store")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &DayBoundaryReader{store: store, clock: clock, logger: logger}, nil
}

// FirstReadingOfDay returns the cumulative energy of the earliest reading on day.
func (r *DayBoundaryReader) FirstReadingOfDay(ctx context.Context, meterID string, day time.Time) (int64, bool, error) {
	return r.boundary(ctx, meterID, day, boundaryFirst)
}

// LastReadingOfDay returns the cumulative energy of the latest reading on day.
func (r *DayBoundaryReader) LastReadingOfDay(ctx context.Context, meterID string, day time.Time) (int64, bool, error) {
	return r.boundary(ctx, meterID, day, boundaryLast)
}

// FirstReadingDate returns the earliest day holding a reading for the meter.
func (r *DayBoundaryReader) FirstReadingDate(ctx context.Context, meterID string) (time.Time, bool, error) {
	if meterID == "" {
		return time.Time{}, false, nil
	}
	keys, err := r.store.ScanPrefix(ctx, readings.MeterPrefix(meterID))
	if err != nil {
		return time.Time{}, false, err
	}
	for _, key := range keys {
		keyMeter, ts, err := readings.ParseReadingKey(key)
		if err != nil || keyMeter != meterID {
			continue
		}
		if _, ok, err := r.readingAt(ctx, key); err != nil {
			return time.Time{}, false, err
		} else if ok {
			return term.Day(ts), true, nil
		}
	}
	return time.Time{}, false, nil
}

func (r *DayBoundaryReader) boundary(ctx context.Context, meterID string, day time.Time, kind boundaryKind) (int64, bool, error) {
	if meterID == "" || day.IsZero() {
		return 0, false, nil
	}
	day = term.Day(day)

	memoKey := readings.FirstMemoKey(meterID, day)
	if kind == boundaryLast {
		memoKey = readings.LastMemoKey(meterID, day)
	}

	raw, ok, err := r.store.Get(ctx, memoKey)
	if err != nil {
		return 0, false, err
	}
	if ok {
		entry, err := readings.DecodeEntry(raw)
		if reading, isReading := entry.(readings.Reading); err == nil && isReading {
			metrics.IncCacheMemo(string(kind), metrics.MemoHit)
			return reading.Energy, true, nil
		}
		r.logger.Printf("day boundary: malformed memo: key=%s err=%v", memoKey, err)
	}
	metrics.IncCacheMemo(string(kind), metrics.MemoMiss)

	keys, err := r.store.ScanPrefix(ctx, readings.DayPrefix(meterID, day))
	if err != nil {
		return 0, false, err
	}

	for i := range keys {
		key := keys[i]
		if kind == boundaryLast {
			key = keys[len(keys)-1-i]
		}
		if readings.IsMemoKey(key) {
			continue
		}
		reading, raw, err := r.readingWithPayload(ctx, key)
		if err != nil {
			return 0, false, err
		}
		if reading == nil {
			continue
		}
		if r.memoizable(day) {
			if err := r.store.Set(ctx, memoKey, raw); err != nil {
				r.logger.Printf("day boundary: memo write failed: key=%s err=%v", memoKey, err)
			} else {
				metrics.IncCacheMemo(string(kind), metrics.MemoFill)
			}
		}
		return reading.Energy, true, nil
	}
	return 0, false, nil
}

// memoizable reports whether day is closed; the current day may still receive readings.
func (r *DayBoundaryReader) memoizable(day time.Time) bool {
	return term.After(r.clock.Now(), day)
}

func (r *DayBoundaryReader) readingAt(ctx context.Context, key string) (readings.Reading, bool, error) {
	reading, _, err := r.readingWithPayload(ctx, key)
	if err != nil || reading == nil {
		return readings.Reading{}, false, err
	}
	return *reading, true, nil
}

func (r *DayBoundaryReader) readingWithPayload(ctx context.Context, key string) (*readings.Reading, string, error) {
	raw, ok, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", nil
	}
	entry, err := readings.DecodeEntry(raw)
	if err != nil {
		r.logger.Printf("day boundary: skip malformed entry: key=%s err=%v", key, err)
		return nil, "", nil
	}
	reading, ok := entry.(readings.Reading)
	if !ok {
		return nil, "", nil
	}
	return &reading, raw, nil
}
