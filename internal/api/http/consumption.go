package apihttp

import (
	"log"
	"net/http"

	ledger "github.com/buzzn/myBuzzn-backend-sub000/internal/ledger/domain"
	ledgerinterfaces "github.com/buzzn/myBuzzn-backend-sub000/internal/ledger/interfaces"
	"github.com/buzzn/myBuzzn-backend-sub000/internal/term"
	users "github.com/buzzn/myBuzzn-backend-sub000/internal/users/domain"
)

type rowView func(ledger.Row) any

func viewPerCapita(row ledger.Row) any { return row.PerCapita() }

func viewPKV(row ledger.Row) any { return row.PKV() }

type exportFormat struct {
	contentType string
	extension   string
	build       func(meterID string, rows []ledger.Row) ([]byte, error)
}

var (
	exportXLSX = exportFormat{
		contentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		extension:   "xlsx",
		build:       ledgerinterfaces.BuildLedgerXLSX,
	}
	exportPDF = exportFormat{
		contentType: "application/pdf",
		extension:   "pdf",
		build:       ledgerinterfaces.BuildLedgerPDF,
	}
)

// ConsumptionHandler serves the caller's per-capita consumption series.
type ConsumptionHandler struct {
	users  users.Repository
	ledger LedgerQuery
	clock  Clock
	logger *log.Logger
}

func (h *ConsumptionHandler) series(view rowView) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rows, ok := h.load(w, r)
		if !ok {
			return
		}
		if len(rows) == 0 {
			writePartialContent(w)
			return
		}
		body := make(map[string]any, len(rows))
		for _, row := range rows {
			body[term.Day(row.Date).Format(dateLayout)] = view(row)
		}
		writeJSON(w, http.StatusOK, body)
	})
}

func (h *ConsumptionHandler) export(format exportFormat) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rows, ok := h.load(w, r)
		if !ok {
			return
		}
		if len(rows) == 0 {
			writePartialContent(w)
			return
		}
		meterID := rows[0].MeterID
		data, err := format.build(meterID, rows)
		if err != nil {
			h.logger.Printf("api: export failed: meter=%s format=%s err=%v", meterID, format.extension, err)
			http.Error(w, "export error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", format.contentType)
		w.Header().Set("Content-Disposition", "attachment; filename=per-capita-consumption-"+meterID+"."+format.extension)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	})
}

// load resolves the caller and reads rows from ?begin= (default support-year start) to today.
func (h *ConsumptionHandler) load(w http.ResponseWriter, r *http.Request) ([]ledger.Row, bool) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return nil, false
	}
	user, ok := currentUser(w, r, h.users)
	if !ok {
		return nil, false
	}
	now := h.clock.Now()
	begin, err := parseDateQuery(r, "begin", term.SupportYearStart(now))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	if !user.HasMeter() {
		return nil, true
	}
	rows, err := h.ledger.Series(r.Context(), user.MeterID, begin, term.Day(now))
	if err != nil {
		h.logger.Printf("api: ledger series failed: user=%s meter=%s err=%v", user.ID, user.MeterID, err)
		http.Error(w, "query ledger error", http.StatusInternalServerError)
		return nil, false
	}
	return rows, true
}
