package domain

import "time"

type CacheEvent string

const (
	CacheEventHit        CacheEvent = "hit"
	CacheEventMiss       CacheEvent = "miss"
	CacheEventStore      CacheEvent = "store"
	CacheEventExpire     CacheEvent = "expire"
	CacheEventInvalidate CacheEvent = "invalidate"
)

type RequestMetric struct {
	Tool     string
	Domain   string
	Code     ErrorCode // empty on success
	Duration time.Duration
	CacheHit bool
}

type UpstreamMetric struct {
	Method      string
	StatusClass string
	Duration    time.Duration
}

type Metrics interface {
	ObserveRequest(m RequestMetric)
	ObserveCacheEvent(event CacheEvent)
	AddInflight(delta int)
	ObserveUpstream(m UpstreamMetric)
}

// NopMetrics discards every observation. Constructors fall back to it when
// no collector is injected.
type NopMetrics struct{}

func (NopMetrics) ObserveRequest(RequestMetric)   {}
func (NopMetrics) ObserveCacheEvent(CacheEvent)   {}
func (NopMetrics) AddInflight(int)                {}
func (NopMetrics) ObserveUpstream(UpstreamMetric) {}

