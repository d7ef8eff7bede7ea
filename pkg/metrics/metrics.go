package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PermissionChecks counts guard decisions by resource, action and outcome (allowed|denied|unauthenticated|error).
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freshapi_permission_checks_total",
			Help: "Total number of authorization guard decisions",
		},
		[]string{"resource", "action", "result"},
	)

	// HierarchyChecks counts manage-user decisions by outcome.
	HierarchyChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freshapi_hierarchy_checks_total",
			Help: "Total number of role hierarchy checks",
		},
		[]string{"result"},
	)

	// LoaderBatchSize observes how many keys each permission batch resolved.
	LoaderBatchSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "freshapi_permission_loader_batch_size",
			Help:    "Number of users resolved per permission loader batch",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		},
		[]string{"resource"},
	)

	// LoaderCacheLookups counts request-scoped cache lookups by outcome (hit|miss).
	LoaderCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freshapi_permission_loader_cache_total",
			Help: "Request-scoped permission cache lookups",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "freshapi_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
