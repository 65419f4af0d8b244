package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
)

type PrometheusMetrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	cacheEvents      *prometheus.CounterVec
	inflightRequests prometheus.Gauge
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alecs_requests_total",
				Help: "Total number of tool requests by outcome code",
			},
			[]string{"tool", "code"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "alecs_request_duration_seconds",
				Help:    "Duration of tool requests in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"domain", "tool"},
		),
		cacheEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alecs_cache_events_total",
				Help: "Cache events by kind (hit, miss, store, expire, invalidate)",
			},
			[]string{"event"},
		),
		inflightRequests: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "alecs_inflight_requests",
				Help: "Number of tool requests currently executing",
			},
		),
		upstreamRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alecs_upstream_requests_total",
				Help: "Total number of Akamai API calls by status class",
			},
			[]string{"method", "status_class"},
		),
		upstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "alecs_upstream_duration_seconds",
				Help:    "Duration of Akamai API calls in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method"},
		),
	}
}

func (p *PrometheusMetrics) ObserveRequest(m domain.RequestMetric) {
	code := "ok"
	if m.Code != "" {
		code = string(m.Code)
	}
	p.requestsTotal.WithLabelValues(m.Tool, code).Inc()
	p.requestDuration.WithLabelValues(m.Domain, m.Tool).Observe(m.Duration.Seconds())
}

func (p *PrometheusMetrics) ObserveCacheEvent(event domain.CacheEvent) {
	p.cacheEvents.WithLabelValues(string(event)).Inc()
}

func (p *PrometheusMetrics) AddInflight(delta int) {
	p.inflightRequests.Add(float64(delta))
}

func (p *PrometheusMetrics) ObserveUpstream(m domain.UpstreamMetric) {
	p.upstreamRequests.WithLabelValues(m.Method, m.StatusClass).Inc()
	p.upstreamDuration.WithLabelValues(m.Method).Observe(m.Duration.Seconds())
}

var _ domain.Metrics = (*PrometheusMetrics)(nil)
