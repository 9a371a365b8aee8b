// Package metrics registers the Prometheus collectors exported by the
// engine and its HTTP surface.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gadmin_api_requests_total",
			Help: "Number of API requests",
		},
		[]string{"method", "path", "status"},
	)
	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gadmin_api_latency_seconds",
			Help:    "API latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	SchemaCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gadmin_schema_cache_hits_total",
			Help: "Schema store cache hits",
		},
	)
	SchemaCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gadmin_schema_cache_misses_total",
			Help: "Schema store cache misses",
		},
	)
	Queries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gadmin_queries_total",
			Help: "Dynamic list/relation queries by model",
		},
		[]string{"model"},
	)
	Actions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gadmin_actions_total",
			Help: "Executed schema actions by model and key",
		},
		[]string{"model", "action", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		APIRequests,
		APILatency,
		SchemaCacheHits,
		SchemaCacheMisses,
		Queries,
		Actions,
	)
}
