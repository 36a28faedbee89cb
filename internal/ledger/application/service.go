package application

import (
	"context"
	"errors"
	"log"
	"time"

	ledger "github.com/buzzn/myBuzzn-backend-sub000/internal/ledger/domain"
	"github.com/buzzn/myBuzzn-backend-sub000/internal/observability/metrics"
	"github.com/buzzn/myBuzzn-backend-sub000/internal/term"
	users "github.com/buzzn/myBuzzn-backend-sub000/internal/users/domain"
)

// ErrNoMeter is returned when a user has no meter assigned.
var ErrNoMeter = errors.New("ledger service: user has no meter")

// ReadingHistory locates the first cached reading of a meter.
type ReadingHistory interface {
	FirstReadingDate(ctx context.Context, meterID string) (time.Time, bool, error)
}

// RowPublisher is notified after a row has been appended.
type RowPublisher interface {
	PublishRow(ctx context.Context, row ledger.Row) error
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now in UTC.
type SystemClock struct{}

// Now returns current time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Service persists ledger rows computed by the engine.
type Service struct {
	engine    *ledger.Engine
	repo      ledger.Repository
	history   ReadingHistory
	publisher RowPublisher
	clock     Clock
	logger    *log.Logger
}

// Option configures the service.
type Option func(*Service)

// WithPublisher sets the row publisher.
func WithPublisher(publisher RowPublisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

// WithClock overrides the clock.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService constructs a ledger service.
func NewService(engine *ledger.Engine, repo ledger.Repository, history ReadingHistory, logger *log.Logger, opts ...Option) (*Service, error) {
	if engine == nil {
		return nil, errors.New("ledger service: nil engine")
	}
	if repo == nil {
		return nil, errors.New("ledger service: nil repository")
	}
	if history == nil {
		return nil, errors.New("ledger service: nil reading history")
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &Service{
		engine:  engine,
		repo:    repo,
		history: history,
		clock:   SystemClock{},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Seed persists the day-zero row so that firstDay can be extended.
func (s *Service) Seed(ctx context.Context, meterID string, inhabitants int, firstDay time.Time) (ledger.Row, error) {
	row, err := s.engine.DefineBaseValues(meterID, inhabitants, firstDay)
	if err != nil {
		s.logger.Printf("ledger: seed rejected: meter=%s day=%s err=%v", meterID, term.Day(firstDay).Format(ledger.DateLayout), err)
		return ledger.Row{}, err
	}
	if err := s.repo.Append(ctx, row); err != nil {
		return ledger.Row{}, err
	}
	s.publish(ctx, row)
	return row, nil
}

// ExtendDay computes and persists the row for date. A row that already exists
// is returned unchanged.
func (s *Service) ExtendDay(ctx context.Context, meterID string, inhabitants int, date time.Time) (ledger.Row, error) {
	start := time.Now()
	if existing, err := s.repo.Get(ctx, meterID, date); err == nil {
		return *existing, nil
	} else if !errors.Is(err, ledger.ErrRowNotFound) {
		metrics.ObserveLedgerExtend(metrics.ResultError, time.Since(start))
		return ledger.Row{}, err
	}

	row, err := s.engine.Extend(ctx, meterID, inhabitants, date)
	if err != nil {
		if ledger.IsRejection(err) {
			metrics.ObserveLedgerExtend(metrics.ResultRejected, time.Since(start))
			s.logger.Printf("ledger: extend rejected: meter=%s day=%s err=%v", meterID, term.Day(date).Format(ledger.DateLayout), err)
		} else {
			metrics.ObserveLedgerExtend(metrics.ResultError, time.Since(start))
			s.logger.Printf("ledger: extend failed: meter=%s day=%s err=%v", meterID, term.Day(date).Format(ledger.DateLayout), err)
		}
		return ledger.Row{}, err
	}
	if err := s.repo.Append(ctx, row); err != nil {
		if errors.Is(err, ledger.ErrRowExists) {
			if existing, getErr := s.repo.Get(ctx, meterID, date); getErr == nil {
				metrics.ObserveLedgerExtend(metrics.ResultSuccess, time.Since(start))
				return *existing, nil
			}
		}
		metrics.ObserveLedgerExtend(metrics.ResultError, time.Since(start))
		s.logger.Printf("ledger: append failed: meter=%s day=%s err=%v", meterID, row.Date.Format(ledger.DateLayout), err)
		return ledger.Row{}, err
	}
	if row.Fallback {
		metrics.IncLedgerFallback()
		s.logger.Printf("ledger: readings missing, moving average held: meter=%s day=%s", meterID, row.Date.Format(ledger.DateLayout))
	}
	metrics.ObserveLedgerExtend(metrics.ResultSuccess, time.Since(start))
	s.publish(ctx, row)
	return row, nil
}

// CatchUpResult summarizes a catch-up run.
type CatchUpResult struct {
	MeterID  string
	Seeded   bool
	Appended int
	Latest   *ledger.Row
}

// CatchUp extends the user's chain day by day up to until, seeding it from the
// first cached reading when empty. It stops at the first rejected day.
func (s *Service) CatchUp(ctx context.Context, user users.User, until time.Time) (CatchUpResult, error) {
	result := CatchUpResult{MeterID: user.MeterID}
	if !user.HasMeter() {
		return result, ErrNoMeter
	}
	if user.Inhabitants <= 0 {
		return result, ledger.ErrInvalidInhabitants
	}
	until = term.Day(until)
	if today := term.Day(s.clock.Now()); until.After(today) {
		until = today
	}

	latest, err := s.repo.Latest(ctx, user.MeterID)
	if errors.Is(err, ledger.ErrRowNotFound) {
		firstDay, ok, histErr := s.history.FirstReadingDate(ctx, user.MeterID)
		if histErr != nil {
			return result, histErr
		}
		if !ok {
			s.logger.Printf("ledger: no readings to seed chain: meter=%s", user.MeterID)
			return result, nil
		}
		base, seedErr := s.Seed(ctx, user.MeterID, user.Inhabitants, firstDay)
		if seedErr != nil {
			return result, seedErr
		}
		result.Seeded = true
		latest = &base
	} else if err != nil {
		return result, err
	}
	result.Latest = latest

	for day := latest.Date.AddDate(0, 0, 1); !day.After(until); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		row, err := s.ExtendDay(ctx, user.MeterID, user.Inhabitants, day)
		if ledger.IsRejection(err) {
			break
		}
		if err != nil {
			return result, err
		}
		result.Appended++
		result.Latest = &row
	}
	return result, nil
}

// Series returns the rows between from and to inclusive.
func (s *Service) Series(ctx context.Context, meterID string, from, to time.Time) ([]ledger.Row, error) {
	if meterID == "" {
		return nil, ErrNoMeter
	}
	return s.repo.ListRange(ctx, meterID, from, to)
}

// Reset removes a meter's chain.
func (s *Service) Reset(ctx context.Context, meterID string) error {
	if err := s.repo.Reset(ctx, meterID); err != nil {
		return err
	}
	s.logger.Printf("ledger: chain reset: meter=%s", meterID)
	return nil
}

func (s *Service) publish(ctx context.Context, row ledger.Row) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRow(ctx, row); err != nil {
		s.logger.Printf("ledger: publish failed: meter=%s day=%s err=%v", row.MeterID, row.Date.Format(ledger.DateLayout), err)
	}
}
