package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the registry.
type Metrics struct {
	AgentsRegistered   prometheus.Counter
	ReputationUpdates  *prometheus.CounterVec
	ReputationReplays  prometheus.Counter
	SettlementLookups  *prometheus.HistogramVec
	SettlementFailures prometheus.Counter
	HTTPDuration       *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		AgentsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "repute_agents_registered_total",
			Help: "Total number of agents registered",
		}),
		ReputationUpdates: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "repute_reputation_updates_total",
			Help: "Total number of applied reputation updates by task outcome",
		}, []string{"outcome"}),
		ReputationReplays: promauto.NewCounter(prometheus.CounterOpts{
			Name: "repute_reputation_replays_total",
			Help: "Total number of settlement notifications resolved as idempotent replays",
		}),
		SettlementLookups: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "repute_settlement_lookup_duration_seconds",
			Help:    "Latency of settlement confirmation lookups by resulting status",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"status"}),
		SettlementFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "repute_settlement_lookup_failures_total",
			Help: "Total number of settlement lookups that exhausted retries and failed closed",
		}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "repute_http_request_duration_seconds",
			Help:    "HTTP request latency by method, path, and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
}

// IncrementAgentsRegistered increments the agents registered counter by 1.
// All increment helpers are nil-safe so services can run without metrics.
func (m *Metrics) IncrementAgentsRegistered() {
	if m != nil {
		m.AgentsRegistered.Inc()
	}
}

// IncrementReputationUpdates counts an applied update for the given outcome.
func (m *Metrics) IncrementReputationUpdates(outcome string) {
	if m != nil {
		m.ReputationUpdates.WithLabelValues(outcome).Inc()
	}
}

// IncrementReputationReplays counts a settlement notification that matched an
// already-recorded event.
func (m *Metrics) IncrementReputationReplays() {
	if m != nil {
		m.ReputationReplays.Inc()
	}
}

// ObserveSettlementLookup records one confirmation lookup.
func (m *Metrics) ObserveSettlementLookup(status string, d time.Duration) {
	if m != nil {
		m.SettlementLookups.WithLabelValues(status).Observe(d.Seconds())
	}
}

// IncrementSettlementFailures counts a lookup that failed closed.
func (m *Metrics) IncrementSettlementFailures() {
	if m != nil {
		m.SettlementFailures.Inc()
	}
}

// ObserveHTTPRequest records one HTTP request in the latency histogram.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, d time.Duration) {
	if m != nil {
		m.HTTPDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(d.Seconds())
	}
}
