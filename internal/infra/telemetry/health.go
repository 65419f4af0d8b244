package telemetry

import (
	"sync"
	"time"
)

// HealthReport is the /healthz response body.
type HealthReport struct {
	Status string            `json:"status"`
	Loops  map[string]string `json:"loops,omitempty"`
}

type loopState struct {
	ttl      time.Duration
	lastBeat time.Time
}

// HealthTracker watches registered background loops via heartbeats and holds
// the readiness flag for /readyz. A loop that stops beating within its TTL
// turns /healthz unhealthy.
type HealthTracker struct {
	mu    sync.Mutex
	loops map[string]*loopState
	ready bool
}

func NewHealthTracker() *HealthTracker {
	return &HealthTracker{
		loops: make(map[string]*loopState),
	}
}

// Heartbeat is the beat handle handed to one background loop.
type Heartbeat struct {
	tracker *HealthTracker
	name    string
}

func (h *Heartbeat) Beat() {
	if h == nil || h.tracker == nil {
		return
	}
	h.tracker.beat(h.name)
}

// Register adds a loop that must beat at least once per ttl.
func (t *HealthTracker) Register(name string, ttl time.Duration) *Heartbeat {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loops[name] = &loopState{ttl: ttl}
	return &Heartbeat{tracker: t, name: name}
}

func (t *HealthTracker) beat(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if loop, ok := t.loops[name]; ok {
		loop.lastBeat = time.Now()
	}
}

func (t *HealthTracker) SetReady(ready bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ready = ready
}

func (t *HealthTracker) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ready
}

func (t *HealthTracker) Report() HealthReport {
	t.mu.Lock()
	defer t.mu.Unlock()

	report := HealthReport{Status: "ok"}
	if len(t.loops) == 0 {
		return report
	}

	now := time.Now()
	report.Loops = make(map[string]string, len(t.loops))
	for name, loop := range t.loops {
		switch {
		case loop.lastBeat.IsZero():
			report.Loops[name] = "waiting"
			report.Status = "degraded"
		case now.Sub(loop.lastBeat) > loop.ttl:
			report.Loops[name] = "stale"
			report.Status = "degraded"
		default:
			report.Loops[name] = "ok"
		}
	}
	return report
}
