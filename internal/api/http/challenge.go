package apihttp

import (
	"log"
	"net/http"

	users "github.com/buzzn/myBuzzn-backend-sub000/internal/users/domain"
)

type individualChallenge struct {
	Baseline  int     `json:"baseline"`
	Saving    float64 `json:"saving"`
	SavingKWh float64 `json:"saving_kwh"`
}

type communityChallenge struct {
	Saving    float64 `json:"saving"`
	SavingKWh float64 `json:"saving_kwh"`
}

// ChallengeHandler serves the global challenge savings.
type ChallengeHandler struct {
	users   users.Repository
	savings SavingEstimator
	logger  *log.Logger
}

// Individual handles GET /individual-global-challenge.
func (h *ChallengeHandler) Individual(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	user, ok := currentUser(w, r, h.users)
	if !ok {
		return
	}
	saving, ok := h.savings.EstimateSavingForUser(r.Context(), *user)
	if !ok {
		writePartialContent(w)
		return
	}
	writeJSON(w, http.StatusOK, individualChallenge{
		Baseline:  saving.Baseline,
		Saving:    saving.Saving,
		SavingKWh: saving.SavingKWh,
	})
}

// Community handles GET /community-global-challenge.
func (h *ChallengeHandler) Community(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	list, err := h.users.List(r.Context())
	if err != nil {
		h.logger.Printf("api: list users failed: %v", err)
		http.Error(w, "list users error", http.StatusInternalServerError)
		return
	}
	total, ok := h.savings.EstimateSavingAllUsers(r.Context(), list)
	if !ok {
		writePartialContent(w)
		return
	}
	writeJSON(w, http.StatusOK, communityChallenge{Saving: total.Saving, SavingKWh: total.SavingKWh})
}
