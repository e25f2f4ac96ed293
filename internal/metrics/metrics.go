// Package metrics exposes Prometheus instrumentation for the decision path.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the decision-path collectors on a private registry so
// multiple instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	decisions           *prometheus.CounterVec
	decisionDuration    prometheus.Histogram
	classifierFallbacks prometheus.Counter
	cacheHits           *prometheus.CounterVec
	advisoryFlags       *prometheus.CounterVec
}

// New creates and registers the FraudGuard collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fraudguard",
			Name:      "decisions_total",
			Help:      "Total decisions by verdict.",
		}, []string{"verdict"}), // "fraud", "safe"

		decisionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fraudguard",
			Name:      "decision_duration_seconds",
			Help:      "End-to-end decision latency in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		classifierFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fraudguard",
			Name:      "classifier_fallbacks_total",
			Help:      "Total decisions served with the neutral prior because the classifier was unavailable.",
		}),

		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fraudguard",
			Name:      "decision_cache_total",
			Help:      "Decision cache lookups by outcome.",
		}, []string{"outcome"}), // "hit", "miss"

		advisoryFlags: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fraudguard",
			Name:      "advisory_flags_total",
			Help:      "Advisory rule flags raised by rule id.",
		}, []string{"rule_id"}),
	}

	m.registry.MustRegister(
		m.decisions,
		m.decisionDuration,
		m.classifierFallbacks,
		m.cacheHits,
		m.advisoryFlags,
	)

	return m
}

// RecordDecision counts one decision and observes its latency.
func (m *Metrics) RecordDecision(fraud bool, seconds float64) {
	verdict := "safe"
	if fraud {
		verdict = "fraud"
	}
	m.decisions.WithLabelValues(verdict).Inc()
	m.decisionDuration.Observe(seconds)
}

// RecordClassifierFallback counts one neutral-prior fallback.
func (m *Metrics) RecordClassifierFallback() {
	m.classifierFallbacks.Inc()
}

// RecordCacheLookup counts one decision-cache lookup.
func (m *Metrics) RecordCacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheHits.WithLabelValues(outcome).Inc()
}

// RecordFlag counts one advisory flag.
func (m *Metrics) RecordFlag(ruleID string) {
	m.advisoryFlags.WithLabelValues(ruleID).Inc()
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
