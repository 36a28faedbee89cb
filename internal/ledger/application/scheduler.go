package application

import (
	"context"
	"log"
	"time"

	users "github.com/buzzn/myBuzzn-backend-sub000/internal/users/domain"
)

// UserLister lists the users whose chains are maintained.
type UserLister interface {
	List(ctx context.Context) ([]users.User, error)
}

// Scheduler catches up every user's ledger once a day.
type Scheduler struct {
	service *Service
	users   UserLister
	dailyAt string
	logger  *log.Logger
}

// NewScheduler constructs a Scheduler. dailyAt is "HH:MM" UTC.
func NewScheduler(service *Service, lister UserLister, dailyAt string, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		service: service,
		users:   lister,
		dailyAt: dailyAt,
		logger:  logger,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil || s.service == nil || s.users == nil {
		return
	}
	if _, _, err := parseDailyAt(s.dailyAt); err != nil {
		s.logger.Printf("ledger scheduler: disabled: daily_at=%q err=%v", s.dailyAt, err)
		return
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !s.shouldRun(now.UTC()) {
				continue
			}
			s.RunOnce(ctx, now.UTC())
		}
	}
}

func (s *Scheduler) shouldRun(now time.Time) bool {
	hour, minute, err := parseDailyAt(s.dailyAt)
	if err != nil {
		return false
	}
	return now.Hour() == hour && now.Minute() == minute
}

// RunOnce extends every chain up to the day before now.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) int {
	list, err := s.users.List(ctx)
	if err != nil {
		s.logger.Printf("ledger scheduler: list users: err=%v", err)
		return 0
	}
	yesterday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	appended := 0
	for _, user := range list {
		if !user.HasMeter() {
			continue
		}
		result, err := s.service.CatchUp(ctx, user, yesterday)
		if err != nil {
			s.logger.Printf("ledger scheduler: catch up: user=%s meter=%s err=%v", user.ID, user.MeterID, err)
			continue
		}
		appended += result.Appended
	}
	return appended
}

func parseDailyAt(value string) (int, int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}
