package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequestsTotal   *prometheus.CounterVec
	httpLatencySeconds  *prometheus.HistogramVec
	httpErrorsTotal     *prometheus.CounterVec
	reconciliationRuns  *prometheus.CounterVec
	reconciliationTime  *prometheus.HistogramVec
	storeFetchFailures  *prometheus.CounterVec
	debtorsDetected     prometheus.Gauge
	remediationActions  *prometheus.CounterVec
	reconciliationCache *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "academy_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "academy_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "academy_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		reconciliationRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "academy_reconciliation_runs_total",
			Help: "Reconciliation computations by operation and outcome.",
		}, []string{"operation", "outcome"})

		reconciliationTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "academy_reconciliation_duration_seconds",
			Help:    "Time spent reading the store and computing a reconciliation view.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"operation"})

		storeFetchFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "academy_store_fetch_failures_total",
			Help: "Store reads that failed or timed out, by source table.",
		}, []string{"source"})

		debtorsDetected = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "academy_debtors_detected",
			Help: "Number of debtors found by the latest debt detection pass.",
		})

		remediationActions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "academy_remediation_actions_total",
			Help: "Debt remediation actions by action and outcome.",
		}, []string{"action", "outcome"})

		reconciliationCache = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "academy_reconciliation_cache_total",
			Help: "Reconciliation cache lookups by view and result.",
		}, []string{"view", "result"})

		prometheus.MustRegister(
			httpRequestsTotal, httpLatencySeconds, httpErrorsTotal,
			reconciliationRuns, reconciliationTime, storeFetchFailures,
			debtorsDetected, remediationActions, reconciliationCache,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// ReconciliationRuns counts reconciliation computations.
func ReconciliationRuns() *prometheus.CounterVec {
	RegisterMetrics()
	return reconciliationRuns
}

// ReconciliationDuration observes reconciliation latency.
func ReconciliationDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return reconciliationTime
}

// StoreFetchFailures counts failed store reads.
func StoreFetchFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return storeFetchFailures
}

// DebtorsDetected tracks the size of the latest debtor list.
func DebtorsDetected() prometheus.Gauge {
	RegisterMetrics()
	return debtorsDetected
}

// RemediationActions counts suspend, reinstate and relieve actions.
func RemediationActions() *prometheus.CounterVec {
	RegisterMetrics()
	return remediationActions
}

// ReconciliationCache counts cache hits and misses of the reconciliation views.
func ReconciliationCache() *prometheus.CounterVec {
	RegisterMetrics()
	return reconciliationCache
}
