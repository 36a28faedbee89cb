package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	profile "github.com/buzzn/myBuzzn-backend-sub000/internal/profile/domain"
)

const defaultProfileTable = "load_profile_entries"

// Schema creates the default profile table.
const Schema = `
CREATE TABLE IF NOT EXISTS load_profile_entries (
	date DATE NOT NULL,
	time TEXT NOT NULL,
	energy DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (date, time)
)`

// Repository is a Postgres implementation of the load profile table.
type Repository struct {
	db    *sql.DB
	table string
}

// NewRepository creates a repository using the default table name.
func NewRepository(db *sql.DB, opts ...RepositoryOption) *Repository {
	repo := &Repository{db: db, table: defaultProfileTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RepositoryOption configures the repository.
type RepositoryOption func(*Repository)

// WithTable overrides the default table name.
func WithTable(table string) RepositoryOption {
	return func(repo *Repository) {
		if table != "" {
			repo.table = table
		}
	}
}

// SumEnergy sums energy between from and to inclusive.
func (r *Repository) SumEnergy(ctx context.Context, from, to time.Time) (float64, bool, error) {
	query := fmt.Sprintf(`
SELECT SUM(energy)
FROM %s
WHERE date BETWEEN $1 AND $2`, r.table)

	var sum sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, query, from.UTC().Format(profile.DateLayout), to.UTC().Format(profile.DateLayout)).Scan(&sum); err != nil {
		return 0, false, err
	}
	if !sum.Valid {
		return 0, false, nil
	}
	return sum.Float64, true, nil
}

// ReplaceAll deletes the profile and inserts entries in one transaction.
func (r *Repository) ReplaceAll(ctx context.Context, entries []profile.Entry) (err error) {
	if len(entries) == 0 {
		return profile.ErrEmptyProfile
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, r.table)); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
INSERT INTO %s (date, time, energy)
VALUES ($1, $2, $3)
ON CONFLICT (date, time) DO UPDATE SET energy = EXCLUDED.energy`, r.table))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, entry := range entries {
		day, dayErr := entry.Day()
		if dayErr != nil {
			return fmt.Errorf("%w: date=%q", dayErr, entry.Date)
		}
		if _, err = stmt.ExecContext(ctx, day, entry.Time, entry.Energy); err != nil {
			return err
		}
	}
	return tx.Commit()
}
