package application

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/buzzn/myBuzzn-backend-sub000/internal/observability/metrics"
	profile "github.com/buzzn/myBuzzn-backend-sub000/internal/profile/domain"
	"github.com/buzzn/myBuzzn-backend-sub000/internal/term"
)

// EnergySummer sums standard load profile energy over a date range.
type EnergySummer interface {
	SumEnergy(ctx context.Context, from, to time.Time) (float64, bool, error)
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// RatioCalculator computes the share of a canonical year's load elapsed by today.
type RatioCalculator struct {
	profile EnergySummer
	clock   Clock
	logger  *log.Logger
}

// NewRatioCalculator constructs a calculator.
func NewRatioCalculator(summer EnergySummer, clock Clock, logger *log.Logger) (*RatioCalculator, error) {
	if summer == nil {
		return nil, errors.New("ratio calculator: nil profile")
	}
	if clock == nil {
		clock = systemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &RatioCalculator{profile: summer, clock: clock, logger: logger}, nil
}

// CalcRatioValues returns elapsed/total profile energy for the year starting at
// start, clamped to [0,1]. Missing data and store failures yield 0.
func (c *RatioCalculator) CalcRatioValues(ctx context.Context, start time.Time) float64 {
	start = term.Day(start)
	end := start.AddDate(1, 0, 0)
	termEnd := term.Day(c.clock.Now())

	total, ok, err := c.profile.SumEnergy(ctx, start, end)
	if err != nil {
		c.logger.Printf("ratio: sum total failed: start=%s err=%v", start.Format(profile.DateLayout), err)
		metrics.IncRatioFallback("store_error")
		return 0
	}
	if !ok || total == 0 {
		metrics.IncRatioFallback("no_data")
		return 0
	}

	elapsed, ok, err := c.profile.SumEnergy(ctx, start, termEnd)
	if err != nil {
		c.logger.Printf("ratio: sum elapsed failed: start=%s err=%v", start.Format(profile.DateLayout), err)
		metrics.IncRatioFallback("store_error")
		return 0
	}
	if !ok {
		metrics.IncRatioFallback("no_data")
		return 0
	}

	ratio := elapsed / total
	switch {
	case ratio < 0:
		return 0
	case ratio > 1:
		return 1
	}
	return ratio
}
