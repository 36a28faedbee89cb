package metrics

import (
	"database/sql"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "energy_"

	resultSuccess  = "success"
	resultError    = "error"
	resultRejected = "rejected"
	resultNoData   = "no_data"

	memoHit  = "hit"
	memoMiss = "miss"
	memoFill = "fill"
)

var (
	registerOnce sync.Once

	ledgerExtendTotal   *prometheus.CounterVec
	ledgerExtendLatency *prometheus.HistogramVec
	ledgerFallbackTotal prometheus.Counter

	ingestRunsTotal     *prometheus.CounterVec
	ingestRunLatency    prometheus.Histogram
	ingestReadingsTotal *prometheus.CounterVec
	ingestErrors        *prometheus.CounterVec

	cacheMemoTotal *prometheus.CounterVec

	savingEstimateTotal *prometheus.CounterVec
	ratioFallbackTotal  *prometheus.CounterVec

	authRejectedTotal *prometheus.CounterVec
)

// Init registers pipeline metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		ledgerExtendTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ledger_extend_total",
				Help: "Total daily ledger extensions by result",
			},
			[]string{"result"},
		)
		ledgerExtendLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ledger_extend_latency_seconds",
				Help:    "Daily ledger extension latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		ledgerFallbackTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "ledger_moving_average_fallback_total",
				Help: "Ledger days computed from the moving average because readings were missing",
			},
		)

		ingestRunsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_runs_total",
				Help: "Total ingestion runs by result",
			},
			[]string{"result"},
		)
		ingestRunLatency = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_run_latency_seconds",
				Help:    "Ingestion run latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
		)
		ingestReadingsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_entries_total",
				Help: "Total cached entries written by type",
			},
			[]string{"type"},
		)
		ingestErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_errors_total",
				Help: "Total ingestion errors by reason",
			},
			[]string{"reason"},
		)

		cacheMemoTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cache_day_memo_total",
				Help: "First/last reading of day lookups by kind and outcome",
			},
			[]string{"kind", "outcome"},
		)

		savingEstimateTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "saving_estimate_total",
				Help: "Energy saving estimates by result",
			},
			[]string{"result"},
		)
		ratioFallbackTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "profile_ratio_fallback_total",
				Help: "Standard load profile ratios that fell back to zero by reason",
			},
			[]string{"reason"},
		)
		authRejectedTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_auth_rejected_total",
				Help: "Requests rejected by the auth middleware by status",
			},
			[]string{"status"},
		)

		prometheus.MustRegister(
			ledgerExtendTotal,
			ledgerExtendLatency,
			ledgerFallbackTotal,
			ingestRunsTotal,
			ingestRunLatency,
			ingestReadingsTotal,
			ingestErrors,
			cacheMemoTotal,
			savingEstimateTotal,
			ratioFallbackTotal,
			authRejectedTotal,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveLedgerExtend records a ledger extension and its result.
func ObserveLedgerExtend(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if ledgerExtendTotal != nil {
		ledgerExtendTotal.WithLabelValues(result).Inc()
	}
	if ledgerExtendLatency != nil {
		ledgerExtendLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncLedgerFallback counts a day computed from the prior moving average.
func IncLedgerFallback() {
	if ledgerFallbackTotal != nil {
		ledgerFallbackTotal.Inc()
	}
}

// ObserveIngestRun records an ingestion run.
func ObserveIngestRun(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if ingestRunsTotal != nil {
		ingestRunsTotal.WithLabelValues(result).Inc()
	}
	if ingestRunLatency != nil {
		ingestRunLatency.Observe(duration.Seconds())
	}
}

// AddIngestedEntries counts cache entries written by type.
func AddIngestedEntries(entryType string, count int) {
	if count <= 0 {
		return
	}
	if ingestReadingsTotal != nil {
		ingestReadingsTotal.WithLabelValues(entryType).Add(float64(count))
	}
}

// IncIngestError increments the ingestion error counter.
func IncIngestError(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if ingestErrors != nil {
		ingestErrors.WithLabelValues(reason).Inc()
	}
}

// IncCacheMemo counts a first/last of day lookup outcome.
func IncCacheMemo(kind, outcome string) {
	if cacheMemoTotal != nil {
		cacheMemoTotal.WithLabelValues(kind, outcome).Inc()
	}
}

// IncSavingEstimate counts a saving estimate by result.
func IncSavingEstimate(result string) {
	if result == "" {
		result = resultSuccess
	}
	if savingEstimateTotal != nil {
		savingEstimateTotal.WithLabelValues(result).Inc()
	}
}

// IncRatioFallback counts a ratio that degraded to zero.
func IncRatioFallback(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if ratioFallbackTotal != nil {
		ratioFallbackTotal.WithLabelValues(reason).Inc()
	}
}

// IncAuthRejected counts a request refused with status 401 or 403.
func IncAuthRejected(status int) {
	if authRejectedTotal != nil {
		authRejectedTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess  = resultSuccess
	ResultError    = resultError
	ResultRejected = resultRejected
	ResultNoData   = resultNoData

	MemoHit  = memoHit
	MemoMiss = memoMiss
	MemoFill = memoFill
)
