// Package metrics holds the Prometheus collectors for treestore.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "treestore"

var (
	Registry = prometheus.NewRegistry()

	factory = promauto.With(Registry)

	// BackendOps counts backend statements by operation and outcome.
	BackendOps = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "backend",
		Name:      "operations_total",
		Help:      "Backend statements by operation and result.",
	}, []string{"op", "result"})

	// BackendDuration tracks backend statement latency.
	BackendDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "backend",
		Name:      "operation_duration_seconds",
		Help:      "Backend statement duration in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~800ms
	}, []string{"op"})

	// BackendRetries counts retries of statements that hit a locked database.
	BackendRetries = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "backend",
		Name:      "retries_total",
		Help:      "Backend statements retried after a lock error.",
	}, []string{"op"})

	// NodesDeleted counts nodes removed by subtree deletes.
	NodesDeleted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "nodes_deleted_total",
		Help:      "Nodes removed, including descendants of deleted nodes.",
	})

	// HTTPRequests counts API requests by route and status code.
	HTTPRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP API requests by route and status code.",
	}, []string{"route", "code"})

	// HTTPDuration tracks API request latency.
	HTTPDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP API request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	// QueryCache counts parsed-predicate cache lookups by result.
	QueryCache = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "query_cache_total",
		Help:      "Parsed predicate cache lookups by result (hit or miss).",
	}, []string{"result"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// ObserveBackend records one backend statement.
func ObserveBackend(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	BackendOps.WithLabelValues(op, result).Inc()
	BackendDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
