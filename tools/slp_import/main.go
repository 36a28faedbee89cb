package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"strconv"
	"time"

	profile "github.com/buzzn/myBuzzn-backend-sub000/internal/profile/domain"
	"github.com/buzzn/myBuzzn-backend-sub000/internal/profile/infrastructure/file"
	profilerepo "github.com/buzzn/myBuzzn-backend-sub000/internal/profile/infrastructure/postgres"
	"github.com/buzzn/myBuzzn-backend-sub000/internal/term"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type config struct {
	dsn    string
	path   string
	year   int
	dryRun bool
}

func main() {
	cfg := parseConfig()
	if cfg.path == "" {
		log.Fatal("file is required")
	}
	if cfg.year <= 0 {
		log.Fatal("year must be > 0")
	}

	entries, err := file.Load(cfg.path, cfg.year)
	if err != nil {
		log.Fatalf("load profile: %v", err)
	}
	log.Printf("loaded %d entries from %s (%s)", len(entries), cfg.path, describe(entries))
	if cfg.dryRun {
		return
	}
	if cfg.dsn == "" {
		log.Fatal("PG_DSN or DATABASE_URL is required")
	}

	db, err := sql.Open("pgx", cfg.dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if _, err := db.ExecContext(ctx, profilerepo.Schema); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}
	if err := profilerepo.NewRepository(db).ReplaceAll(ctx, entries); err != nil {
		log.Fatalf("replace profile: %v", err)
	}
	log.Printf("load profile replaced: entries=%d", len(entries))
}

func parseConfig() config {
	cfg := config{}
	flag.StringVar(&cfg.dsn, "db", envOrDefault("PG_DSN", envOrDefault("DATABASE_URL", "")), "Postgres DSN")
	flag.StringVar(&cfg.path, "file", "", "standard load profile (.csv or .xlsx)")
	flag.IntVar(&cfg.year, "year", envOrInt("SLP_YEAR", term.SupportYearStart(time.Now()).Year()), "start year of the support year (March 12) the profile is re-dated to")
	flag.BoolVar(&cfg.dryRun, "dry-run", false, "parse only, do not write")
	flag.Parse()
	return cfg
}

func describe(entries []profile.Entry) string {
	if len(entries) == 0 {
		return "empty"
	}
	return entries[0].Date + ".." + entries[len(entries)-1].Date
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
