package interfaces

import (
	"context"
	"errors"
	"log"

	ledger "github.com/buzzn/myBuzzn-backend-sub000/internal/ledger/domain"
)

// LoggingPublisher logs appended ledger rows.
type LoggingPublisher struct {
	logger *log.Logger
}

// NewLoggingPublisher constructs a logging publisher.
func NewLoggingPublisher(logger *log.Logger) *LoggingPublisher {
	if logger == nil {
		logger = log.Default()
	}
	return &LoggingPublisher{logger: logger}
}

// PublishRow logs the row.
func (p *LoggingPublisher) PublishRow(ctx context.Context, row ledger.Row) error {
	_ = ctx
	if p == nil {
		return errors.New("ledger publisher: nil publisher")
	}
	p.logger.Printf("ledger row appended: meter=%s day=%s days=%d moving_average=%.6f", row.MeterID, row.Date.Format(ledger.DateLayout), row.Days, row.MovingAverage)
	return nil
}
