package apihttp

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/buzzn/myBuzzn-backend-sub000/internal/audit"
	"github.com/buzzn/myBuzzn-backend-sub000/internal/auth"
	ledgerapp "github.com/buzzn/myBuzzn-backend-sub000/internal/ledger/application"
	ledger "github.com/buzzn/myBuzzn-backend-sub000/internal/ledger/domain"
	users "github.com/buzzn/myBuzzn-backend-sub000/internal/users/domain"
)

type catchUpResponse struct {
	MeterID    string `json:"meter_id"`
	Seeded     bool   `json:"seeded"`
	Appended   int    `json:"appended"`
	LatestDate string `json:"latest_date,omitempty"`
}

// AdminHandler exposes ledger maintenance.
type AdminHandler struct {
	users  users.Repository
	ledger LedgerAdmin
	audit  audit.Logger
	clock  Clock
	logger *log.Logger
}

// CatchUp handles POST /admin/ledger/catch-up?user_id=&until=.
func (h *AdminHandler) CatchUp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	until, err := parseDateQuery(r, "until", yesterday(h.clock))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	user, err := h.users.Get(r.Context(), userID)
	if errors.Is(err, users.ErrUserNotFound) {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "load user error", http.StatusInternalServerError)
		return
	}

	result, err := h.ledger.CatchUp(r.Context(), *user, until)
	switch {
	case errors.Is(err, ledgerapp.ErrNoMeter), errors.Is(err, ledger.ErrInvalidInhabitants):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case err != nil:
		h.logger.Printf("api: catch-up failed: user=%s err=%v", userID, err)
		http.Error(w, "catch-up error", http.StatusInternalServerError)
		return
	}

	resp := catchUpResponse{MeterID: result.MeterID, Seeded: result.Seeded, Appended: result.Appended}
	if result.Latest != nil {
		resp.LatestDate = result.Latest.Date.Format(dateLayout)
	}
	h.record(r, audit.ActionLedgerCatchUp, result.MeterID, map[string]any{
		"user_id":  userID,
		"until":    until.Format(dateLayout),
		"seeded":   result.Seeded,
		"appended": result.Appended,
	})
	writeJSON(w, http.StatusOK, resp)
}

// Reset handles POST /admin/ledger/reset?meter_id=.
func (h *AdminHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	meterID := r.URL.Query().Get("meter_id")
	if meterID == "" {
		http.Error(w, "meter_id is required", http.StatusBadRequest)
		return
	}
	if err := h.ledger.Reset(r.Context(), meterID); err != nil {
		h.logger.Printf("api: reset failed: meter=%s err=%v", meterID, err)
		http.Error(w, "reset error", http.StatusInternalServerError)
		return
	}
	h.record(r, audit.ActionLedgerReset, meterID, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) record(r *http.Request, action, meterID string, metadata map[string]any) {
	if h.audit == nil {
		return
	}
	entry := audit.Entry{
		Actor:     auth.UserIDFromContext(r.Context()),
		Role:      string(auth.RoleFromContext(r.Context())),
		Action:    action,
		MeterID:   meterID,
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
	if metadata != nil {
		entry.Metadata, _ = json.Marshal(metadata)
	}
	if err := h.audit.Log(r.Context(), entry); err != nil {
		h.logger.Printf("api: audit log failed: action=%s meter=%s err=%v", action, meterID, err)
	}
}
