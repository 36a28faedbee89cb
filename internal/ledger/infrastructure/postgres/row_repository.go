package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	ledger "github.com/buzzn/myBuzzn-backend-sub000/internal/ledger/domain"
	"github.com/buzzn/myBuzzn-backend-sub000/internal/term"
)

const defaultRowTable = "per_capita_consumption"

// Schema creates the default ledger table.
const Schema = `
CREATE TABLE IF NOT EXISTS per_capita_consumption (
	date DATE NOT NULL,
	meter_id TEXT NOT NULL,
	consumption DOUBLE PRECISION NOT NULL,
	consumption_cumulated DOUBLE PRECISION NOT NULL,
	inhabitants INTEGER NOT NULL,
	per_capita_consumption DOUBLE PRECISION NOT NULL,
	per_capita_consumption_cumulated DOUBLE PRECISION NOT NULL,
	days INTEGER NOT NULL,
	moving_average DOUBLE PRECISION NOT NULL,
	moving_average_annualized INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (date, meter_id)
)`

const rowColumns = `
	date,
	meter_id,
	consumption,
	consumption_cumulated,
	inhabitants,
	per_capita_consumption,
	per_capita_consumption_cumulated,
	days,
	moving_average,
	moving_average_annualized`

// RowRepository is a Postgres implementation of the ledger chain.
type RowRepository struct {
	db    *sql.DB
	table string
}

// NewRowRepository creates a repository using the default table name.
func NewRowRepository(db *sql.DB, opts ...RepositoryOption) *RowRepository {
	repo := &RowRepository{db: db, table: defaultRowTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RepositoryOption configures the repository.
type RepositoryOption func(*RowRepository)

// WithTable overrides the default table name.
func WithTable(table string) RepositoryOption {
	return func(repo *RowRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Get fetches the row of a meter-day.
func (r *RowRepository) Get(ctx context.Context, meterID string, date time.Time) (*ledger.Row, error) {
	if meterID == "" {
		return nil, ledger.ErrEmptyMeterID
	}
	return r.get(ctx, r.db, meterID, date)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *RowRepository) get(ctx context.Context, q queryer, meterID string, date time.Time) (*ledger.Row, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE meter_id = $1
	AND date = $2
LIMIT 1`, rowColumns, r.table)

	row, err := scanRow(q.QueryRowContext(ctx, query, meterID, term.Day(date)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrRowNotFound
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Latest fetches the newest row of a chain.
func (r *RowRepository) Latest(ctx context.Context, meterID string) (*ledger.Row, error) {
	if meterID == "" {
		return nil, ledger.ErrEmptyMeterID
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE meter_id = $1
ORDER BY date DESC
LIMIT 1`, rowColumns, r.table)

	row, err := scanRow(r.db.QueryRowContext(ctx, query, meterID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrRowNotFound
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// ListRange lists rows between from and to inclusive.
func (r *RowRepository) ListRange(ctx context.Context, meterID string, from, to time.Time) ([]ledger.Row, error) {
	if meterID == "" {
		return nil, ledger.ErrEmptyMeterID
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE meter_id = $1
	AND date >= $2
	AND date <= $3
ORDER BY date ASC`, rowColumns, r.table)

	rows, err := r.db.QueryContext(ctx, query, meterID, term.Day(from), term.Day(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.Row
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Append inserts a row after checking its predecessor in the same transaction.
// A per-meter advisory lock serializes concurrent appends to one chain.
func (r *RowRepository) Append(ctx context.Context, row ledger.Row) (err error) {
	if err := row.Validate(); err != nil {
		return err
	}
	day := term.Day(row.Date)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, r.table+":"+row.MeterID); err != nil {
		return err
	}

	if row.IsDayZero() {
		if _, getErr := r.get(ctx, tx, row.MeterID, day); getErr == nil {
			return ledger.ErrRowExists
		}
		var exists bool
		query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE meter_id = $1)`, r.table)
		if err = tx.QueryRowContext(ctx, query, row.MeterID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return ledger.ErrChainSeeded
		}
	} else {
		var prev *ledger.Row
		prev, err = r.get(ctx, tx, row.MeterID, day.AddDate(0, 0, -1))
		if errors.Is(err, ledger.ErrRowNotFound) {
			if _, dupErr := r.get(ctx, tx, row.MeterID, day); dupErr == nil {
				return ledger.ErrRowExists
			}
			return ledger.ErrPredecessorMissing
		}
		if err != nil {
			return err
		}
		if err = row.Follows(*prev); err != nil {
			return err
		}
	}

	query := fmt.Sprintf(`
INSERT INTO %s (%s
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
)
ON CONFLICT (date, meter_id) DO NOTHING`, r.table, rowColumns)

	result, err := tx.ExecContext(
		ctx,
		query,
		day,
		row.MeterID,
		row.Consumption,
		row.ConsumptionCumulated,
		row.Inhabitants,
		row.PerCapitaConsumption,
		row.PerCapitaConsumptionCumulated,
		row.Days,
		row.MovingAverage,
		row.MovingAverageAnnualized,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ledger.ErrRowExists
	}
	return tx.Commit()
}

// Reset deletes a meter's chain.
func (r *RowRepository) Reset(ctx context.Context, meterID string) error {
	if meterID == "" {
		return ledger.ErrEmptyMeterID
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE meter_id = $1`, r.table)
	_, err := r.db.ExecContext(ctx, query, meterID)
	return err
}

func scanRow(scanner interface{ Scan(dest ...any) error }) (*ledger.Row, error) {
	var row ledger.Row
	if err := scanner.Scan(
		&row.Date,
		&row.MeterID,
		&row.Consumption,
		&row.ConsumptionCumulated,
		&row.Inhabitants,
		&row.PerCapitaConsumption,
		&row.PerCapitaConsumptionCumulated,
		&row.Days,
		&row.MovingAverage,
		&row.MovingAverageAnnualized,
	); err != nil {
		return nil, err
	}
	row.Date = term.Day(row.Date)
	return &row, nil
}
