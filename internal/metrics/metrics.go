// Package metrics provides metrics collection for resolve/compile runs.
// It defines a backend-agnostic Collector interface and a Prometheus-backed
// implementation.
package metrics

import "net/http"

// Collector is the interface for recording resolve/compile metrics.
// Implement this to plug in a different metrics backend.
type Collector interface {
	// NodesResolved increments the count of resolved nodes for an
	// ecosystem ("npm", "bower", "native").
	NodesResolved(ecosystem string)

	// NodeMissing increments the count of nodes that resolved to missing.
	NodeMissing(ecosystem string)

	// CacheHit increments the fetch cache hit counter.
	CacheHit()

	// CacheMiss increments the fetch cache miss counter.
	CacheMiss()

	// ObserveCompileDuration records the wall-clock duration, in seconds,
	// of a single compile invocation.
	ObserveCompileDuration(seconds float64)

	// Handler exposes the metrics in whatever format the backend
	// natively serves (e.g. Prometheus text exposition).
	Handler() http.Handler
}

// NopCollector discards every recorded metric. It is the default when the
// caller hasn't configured a Collector.
type NopCollector struct{}

func (NopCollector) NodesResolved(string)          {}
func (NopCollector) NodeMissing(string)             {}
func (NopCollector) CacheHit()                      {}
func (NopCollector) CacheMiss()                     {}
func (NopCollector) ObserveCompileDuration(float64)  {}
func (NopCollector) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

var _ Collector = NopCollector{}
