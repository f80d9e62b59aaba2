package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveSubmission(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveSubmission("Episode", "succeeded", 0.2)
	m.ObserveSubmission("Episode", "canceled", 0.1)
	m.ObserveSubmission("Episode", "succeeded", 0.3)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.SubmissionsTotal.WithLabelValues("Episode", "succeeded")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SubmissionsTotal.WithLabelValues("Episode", "canceled")))
}

func TestObserveSchemaRefresh(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveSchemaRefresh("changed")
	m.ObserveSchemaRefresh("unchanged")
	m.ObserveSchemaRefresh("unchanged")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SchemaRefreshTotal.WithLabelValues("changed")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.SchemaRefreshTotal.WithLabelValues("unchanged")))
}

func TestObservePlanCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObservePlanCache(true)
	m.ObservePlanCache(false)
	m.ObservePlanCache(true)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.PlanCacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PlanCacheMisses))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSubmission("Episode", "failed", 1)
		m.ObserveSchemaRefresh("error")
		m.ObservePlanCache(true)
	})
}
