package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/buzzn/myBuzzn-backend-sub000/internal/audit"
	"github.com/buzzn/myBuzzn-backend-sub000/internal/auth"
	ledgerapp "github.com/buzzn/myBuzzn-backend-sub000/internal/ledger/application"
	ledger "github.com/buzzn/myBuzzn-backend-sub000/internal/ledger/domain"
	savingapp "github.com/buzzn/myBuzzn-backend-sub000/internal/saving/application"
	"github.com/buzzn/myBuzzn-backend-sub000/internal/term"
	users "github.com/buzzn/myBuzzn-backend-sub000/internal/users/domain"
)

const dateLayout = ledger.DateLayout

// LedgerQuery reads ledger series.
type LedgerQuery interface {
	Series(ctx context.Context, meterID string, from, to time.Time) ([]ledger.Row, error)
}

// LedgerAdmin runs maintenance operations on ledger chains.
type LedgerAdmin interface {
	CatchUp(ctx context.Context, user users.User, until time.Time) (ledgerapp.CatchUpResult, error)
	Reset(ctx context.Context, meterID string) error
}

// SavingEstimator estimates per-user and community savings.
type SavingEstimator interface {
	EstimateSavingForUser(ctx context.Context, user users.User) (savingapp.Saving, bool)
	EstimateSavingAllUsers(ctx context.Context, list []users.User) (savingapp.CommunitySaving, bool)
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Deps carries the services the API is built on. Audit, Clock and Logger are optional.
type Deps struct {
	Users   users.Repository
	Ledger  LedgerQuery
	Admin   LedgerAdmin
	Savings SavingEstimator
	Audit   audit.Logger
	Clock   Clock
	Logger  *log.Logger
}

// Register mounts all routes on mux.
func Register(mux *http.ServeMux, deps Deps) error {
	if mux == nil {
		return errors.New("apihttp: nil mux")
	}
	if deps.Users == nil || deps.Ledger == nil || deps.Admin == nil || deps.Savings == nil {
		return errors.New("apihttp: missing dependency")
	}
	if deps.Clock == nil {
		deps.Clock = systemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}

	consumption := &ConsumptionHandler{users: deps.Users, ledger: deps.Ledger, clock: deps.Clock, logger: deps.Logger}
	mux.Handle("/per-capita-consumption", consumption.series(viewPerCapita))
	mux.Handle("/pkv", consumption.series(viewPKV))
	mux.Handle("/per-capita-consumption/export.xlsx", consumption.export(exportXLSX))
	mux.Handle("/per-capita-consumption/export.pdf", consumption.export(exportPDF))

	challenge := &ChallengeHandler{users: deps.Users, savings: deps.Savings, logger: deps.Logger}
	mux.HandleFunc("/individual-global-challenge", challenge.Individual)
	mux.HandleFunc("/community-global-challenge", challenge.Community)

	admin := &AdminHandler{users: deps.Users, ledger: deps.Admin, audit: deps.Audit, clock: deps.Clock, logger: deps.Logger}
	mux.HandleFunc("/admin/ledger/catch-up", admin.CatchUp)
	mux.HandleFunc("/admin/ledger/reset", admin.Reset)
	return nil
}

// currentUser resolves the authenticated user; it writes the error response when it fails.
func currentUser(w http.ResponseWriter, r *http.Request, repo users.Repository) (*users.User, bool) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	user, err := repo.Get(r.Context(), userID)
	if errors.Is(err, users.ErrUserNotFound) {
		http.Error(w, "user not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		http.Error(w, "load user error", http.StatusInternalServerError)
		return nil, false
	}
	return user, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writePartialContent answers 206 with an empty object, the shape clients expect when data is missing.
func writePartialContent(w http.ResponseWriter) {
	writeJSON(w, http.StatusPartialContent, struct{}{})
}

func parseDateQuery(r *http.Request, key string, fallback time.Time) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be YYYY-MM-DD")
	}
	return parsed.UTC(), nil
}

func yesterday(clock Clock) time.Time {
	return term.Day(clock.Now()).AddDate(0, 0, -1)
}
