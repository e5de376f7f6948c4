package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for credential operations.
type Metrics struct {
	CredentialsIssued  prometheus.Counter
	DuplicateIssuances prometheus.Counter
	Verifications      *prometheus.CounterVec
	StoreOpLatency     *prometheus.HistogramVec
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
}

// New registers and returns credential metrics collectors.
func New() *Metrics {
	return &Metrics{
		CredentialsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credvault_credentials_issued_total",
			Help: "Total number of credentials issued by this worker",
		}),
		DuplicateIssuances: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credvault_duplicate_issuances_total",
			Help: "Total number of issuance attempts rejected as duplicates",
		}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credvault_verifications_total",
			Help: "Total number of verification calls, labeled by result",
		}, []string{"result"}),
		StoreOpLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "credvault_store_operation_latency_seconds",
			Help:    "Latency of credential store operations in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"operation"}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credvault_verification_cache_hits_total",
			Help: "Verification reads served from the record cache",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credvault_verification_cache_misses_total",
			Help: "Verification reads that fell through to the store",
		}),
	}
}

// Verification result label values.
const (
	ResultVerified = "verified"
	ResultExpired  = "expired"
	ResultNotFound = "not_found"
)

func (m *Metrics) IncrementCredentialsIssued() {
	m.CredentialsIssued.Inc()
}

func (m *Metrics) IncrementDuplicateIssuances() {
	m.DuplicateIssuances.Inc()
}

func (m *Metrics) IncrementVerifications(result string) {
	m.Verifications.WithLabelValues(result).Inc()
}

// ObserveStoreOpLatency records the latency of a store operation.
func (m *Metrics) ObserveStoreOpLatency(operation string, durationSeconds float64) {
	m.StoreOpLatency.WithLabelValues(operation).Observe(durationSeconds)
}

func (m *Metrics) IncrementCacheHits() {
	m.CacheHits.Inc()
}

func (m *Metrics) IncrementCacheMisses() {
	m.CacheMisses.Inc()
}
