package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics aggregates per-route request counters for the HTTP server. It is
// cheap enough to sit on the hot path of every request.
type Metrics struct {
	mu sync.Mutex

	requestTotal  atomic.Int64
	requestFailed atomic.Int64

	routeMetrics map[string]*RouteMetrics
}

// RouteMetrics holds the counters of a single route.
type RouteMetrics struct {
	requestCount  atomic.Int64
	errorCount    atomic.Int64
	totalDuration atomic.Int64 // milliseconds
}

// NewMetrics creates a metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		routeMetrics: make(map[string]*RouteMetrics),
	}
}

func (m *Metrics) getRouteMetrics(route string) *RouteMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rm, ok := m.routeMetrics[route]; ok {
		return rm
	}
	rm := &RouteMetrics{}
	m.routeMetrics[route] = rm
	return rm
}

// RecordRequest records one completed request on a route.
func (m *Metrics) RecordRequest(route string, duration time.Duration, failed bool) {
	m.requestTotal.Add(1)
	rm := m.getRouteMetrics(route)
	rm.requestCount.Add(1)
	rm.totalDuration.Add(duration.Milliseconds())
	if failed {
		m.requestFailed.Add(1)
		rm.errorCount.Add(1)
	}
}

// RouteSnapshot is a point-in-time view of one route's counters.
type RouteSnapshot struct {
	Route         string `json:"route"`
	RequestCount  int64  `json:"request_count"`
	ErrorCount    int64  `json:"error_count"`
	AvgDurationMs int64  `json:"avg_duration_ms"`
}

// Snapshot is a point-in-time view of all counters.
type Snapshot struct {
	RequestTotal  int64           `json:"request_total"`
	RequestFailed int64           `json:"request_failed"`
	Routes        []RouteSnapshot `json:"routes"`
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := Snapshot{
		RequestTotal:  m.requestTotal.Load(),
		RequestFailed: m.requestFailed.Load(),
	}
	for route, rm := range m.routeMetrics {
		count := rm.requestCount.Load()
		avg := int64(0)
		if count > 0 {
			avg = rm.totalDuration.Load() / count
		}
		snapshot.Routes = append(snapshot.Routes, RouteSnapshot{
			Route:         route,
			RequestCount:  count,
			ErrorCount:    rm.errorCount.Load(),
			AvgDurationMs: avg,
		})
	}
	return snapshot
}
