package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
)

func TestNewPrometheusMetrics(t *testing.T) {
	m := NewPrometheusMetrics(prometheus.NewRegistry())
	assert.NotNil(t, m)
	assert.NotNil(t, m.requestsTotal)
	assert.NotNil(t, m.requestDuration)
	assert.NotNil(t, m.cacheEvents)
	assert.NotNil(t, m.inflightRequests)
	assert.NotNil(t, m.upstreamRequests)
	assert.NotNil(t, m.upstreamDuration)
}

func TestNewPrometheusMetrics_UsesProvidedRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := NewPrometheusMetrics(registry)
	m.ObserveRequest(domain.RequestMetric{
		Tool:     "property_list",
		Domain:   "property",
		Duration: 10 * time.Millisecond,
	})
	m.ObserveCacheEvent(domain.CacheEventHit)
	m.AddInflight(1)
	m.ObserveUpstream(domain.UpstreamMetric{
		Method:      "GET",
		StatusClass: "2xx",
		Duration:    20 * time.Millisecond,
	})

	metrics, err := registry.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(metrics))
	for _, mf := range metrics {
		names = append(names, mf.GetName())
	}

	assert.Contains(t, names, "alecs_requests_total")
	assert.Contains(t, names, "alecs_request_duration_seconds")
	assert.Contains(t, names, "alecs_cache_events_total")
	assert.Contains(t, names, "alecs_inflight_requests")
	assert.Contains(t, names, "alecs_upstream_requests_total")
	assert.Contains(t, names, "alecs_upstream_duration_seconds")
}

func TestPrometheusMetrics_CodeLabel(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewPrometheusMetrics(registry)

	m.ObserveRequest(domain.RequestMetric{Tool: "property_list", Domain: "property"})
	m.ObserveRequest(domain.RequestMetric{Tool: "property_list", Domain: "property", Code: domain.CodeTimeout})

	metrics, err := registry.Gather()
	require.NoError(t, err)

	var labels []string
	for _, mf := range metrics {
		if mf.GetName() != "alecs_requests_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == "code" {
					labels = append(labels, pair.GetValue())
				}
			}
		}
	}
	assert.ElementsMatch(t, []string{"ok", "TIMEOUT"}, labels)
}

func TestPrometheusMetrics_ImplementsInterface(t *testing.T) {
	var _ domain.Metrics = (*PrometheusMetrics)(nil)
}

func TestPrometheusMetrics_InflightGauge(t *testing.T) {
	m := NewPrometheusMetrics(prometheus.NewRegistry())
	assert.NotPanics(t, func() {
		m.AddInflight(1)
		m.AddInflight(1)
		m.AddInflight(-2)
	})
}
