package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusCollector implements Collector on top of a dedicated
// prometheus.Registry, so embedding it in a larger process never collides
// with that process's own default registry.
type PrometheusCollector struct {
	registry *prometheus.Registry

	nodesResolved   *prometheus.CounterVec
	nodesMissing    *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	compileDuration prometheus.Histogram
}

// NewPrometheusCollector registers all resolve/compile metrics on a fresh
// registry and returns the collector.
func NewPrometheusCollector() *PrometheusCollector {
	registry := prometheus.NewRegistry()

	c := &PrometheusCollector{
		registry: registry,
		nodesResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "typings_nodes_resolved_total",
			Help: "Number of dependency tree nodes successfully resolved, by ecosystem.",
		}, []string{"ecosystem"}),
		nodesMissing: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "typings_nodes_missing_total",
			Help: "Number of dependency tree nodes that resolved to missing, by ecosystem.",
		}, []string{"ecosystem"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "typings_fetch_cache_hits_total",
			Help: "Number of fetch cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "typings_fetch_cache_misses_total",
			Help: "Number of fetch cache misses.",
		}),
		compileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "typings_compile_duration_seconds",
			Help:    "Wall-clock duration of a compile invocation.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	registry.MustRegister(c.nodesResolved, c.nodesMissing, c.cacheHits, c.cacheMisses, c.compileDuration)
	return c
}

func (c *PrometheusCollector) NodesResolved(ecosystem string) {
	c.nodesResolved.WithLabelValues(ecosystem).Inc()
}

func (c *PrometheusCollector) NodeMissing(ecosystem string) {
	c.nodesMissing.WithLabelValues(ecosystem).Inc()
}

func (c *PrometheusCollector) CacheHit()  { c.cacheHits.Inc() }
func (c *PrometheusCollector) CacheMiss() { c.cacheMisses.Inc() }

func (c *PrometheusCollector) ObserveCompileDuration(seconds float64) {
	c.compileDuration.Observe(seconds)
}

// Handler serves the Prometheus text exposition format.
func (c *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

var _ Collector = (*PrometheusCollector)(nil)
