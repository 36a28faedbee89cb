package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	ledger "github.com/buzzn/myBuzzn-backend-sub000/internal/ledger/domain"
)

func TestRowRepository_Postgres(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		t.Fatalf("schema: %v", err)
	}

	meterID := "ledger-it-" + time.Now().UTC().Format("20060102150405.000000")
	repo := NewRowRepository(db)
	t.Cleanup(func() { _ = repo.Reset(context.Background(), meterID) })

	base := ledger.Row{Date: time.Date(2020, 2, 6, 0, 0, 0, 0, time.UTC), MeterID: meterID, Inhabitants: 2}
	if err := repo.Append(ctx, base); err != nil {
		t.Fatalf("append base: %v", err)
	}
	if err := repo.Append(ctx, base); !errors.Is(err, ledger.ErrRowExists) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}

	day1 := ledger.Row{
		Date:                          base.Date.AddDate(0, 0, 1),
		MeterID:                       meterID,
		Consumption:                   2.1749714,
		ConsumptionCumulated:          2.1749714,
		Inhabitants:                   2,
		PerCapitaConsumption:          1.0874857,
		PerCapitaConsumptionCumulated: 1.0874857,
		Days:                          1,
		MovingAverage:                 1.0874857,
		MovingAverageAnnualized:       397,
	}
	gap := day1
	gap.Date = day1.Date.AddDate(0, 0, 3)
	if err := repo.Append(ctx, gap); !errors.Is(err, ledger.ErrPredecessorMissing) {
		t.Fatalf("expected predecessor missing, got %v", err)
	}
	if err := repo.Append(ctx, day1); err != nil {
		t.Fatalf("append day1: %v", err)
	}
	if err := repo.Append(ctx, day1); !errors.Is(err, ledger.ErrRowExists) {
		t.Fatalf("expected row exists, got %v", err)
	}

	latest, err := repo.Latest(ctx, meterID)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Days != 1 || latest.MovingAverageAnnualized != 397 || !latest.Date.Equal(day1.Date) {
		t.Fatalf("unexpected latest row: %+v", latest)
	}

	rows, err := repo.ListRange(ctx, meterID, base.Date, day1.Date)
	if err != nil {
		t.Fatalf("list range: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
}
