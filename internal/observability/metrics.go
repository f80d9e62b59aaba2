// Package observability holds metrics and tracing helpers for the form
// engine.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	SubmissionsTotal   *prometheus.CounterVec
	SubmissionDuration *prometheus.HistogramVec
	SchemaRefreshTotal *prometheus.CounterVec
	PlanCacheHits      prometheus.Counter
	PlanCacheMisses    prometheus.Counter
}

// NewMetrics creates and registers the engine metrics. Passing nil uses the
// default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		SubmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "form_submissions_total",
			Help: "Form submissions by entity type and outcome.",
		}, []string{"entity", "outcome"}),
		SubmissionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "form_submission_duration_seconds",
			Help:    "End-to-end form submission duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"entity"}),
		SchemaRefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schema_refresh_total",
			Help: "Schema introspection refreshes by result.",
		}, []string{"result"}),
		PlanCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "selection_plan_cache_hits_total",
			Help: "Selection plan cache hits.",
		}),
		PlanCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "selection_plan_cache_misses_total",
			Help: "Selection plan cache misses.",
		}),
	}

	reg.MustRegister(
		m.SubmissionsTotal,
		m.SubmissionDuration,
		m.SchemaRefreshTotal,
		m.PlanCacheHits,
		m.PlanCacheMisses,
	)
	return m
}

// ObserveSubmission records one submission outcome.
func (m *Metrics) ObserveSubmission(entity, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.SubmissionsTotal.WithLabelValues(entity, outcome).Inc()
	m.SubmissionDuration.WithLabelValues(entity).Observe(seconds)
}

// ObservePlanCache records one selection plan cache lookup.
func (m *Metrics) ObservePlanCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.PlanCacheHits.Inc()
	} else {
		m.PlanCacheMisses.Inc()
	}
}

// ObserveSchemaRefresh records one schema refresh attempt.
func (m *Metrics) ObserveSchemaRefresh(result string) {
	if m == nil {
		return
	}
	m.SchemaRefreshTotal.WithLabelValues(result).Inc()
}
