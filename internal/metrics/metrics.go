package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RetryAttempts counts failed attempts that were scheduled for another try
	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annotator_retry_attempts_total",
			Help: "Total number of retried operation attempts",
		},
		[]string{"policy"},
	)

	// BreakerState exposes the state of each circuit breaker (0 closed, 1 open, 2 half-open)
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "annotator_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"breaker"},
	)

	// BreakerRejections counts calls failed fast by an open breaker
	BreakerRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annotator_breaker_rejections_total",
			Help: "Total number of calls rejected by an open circuit breaker",
		},
		[]string{"breaker"},
	)

	// StoreFetches tracks list fetches per store and result
	StoreFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annotator_store_fetches_total",
			Help: "Total number of store fetches",
		},
		[]string{"store", "result"},
	)

	// StoreFetchLatency tracks fetch latency including retries
	StoreFetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "annotator_store_fetch_latency_seconds",
			Help:    "Store fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"store"},
	)

	// OptimisticUpdates counts terminal outcomes of optimistic updates
	OptimisticUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annotator_optimistic_updates_total",
			Help: "Total number of optimistic updates by outcome",
		},
		[]string{"entity", "outcome"},
	)

	// CoordinatorLoadDuration tracks coordinated load duration
	CoordinatorLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "annotator_coordinator_load_seconds",
			Help:    "Duration of coordinated data loads in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// CoordinatorLoadErrors counts per-domain failures inside coordinated loads
	CoordinatorLoadErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annotator_coordinator_load_errors_total",
			Help: "Total number of domain failures during coordinated loads",
		},
		[]string{"operation", "domain"},
	)

	// ConnectionHealth exposes the last overall health (0 healthy, 1 degraded, 2 unhealthy)
	ConnectionHealth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "annotator_connection_health",
			Help: "Overall backend connection health (0=healthy, 1=degraded, 2=unhealthy)",
		},
	)

	// HealthProbeFailures counts failing health probes
	HealthProbeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annotator_health_probe_failures_total",
			Help: "Total number of failed health probes",
		},
		[]string{"probe"},
	)

	// SystemErrors counts errors reported to the global error store
	SystemErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annotator_system_errors_total",
			Help: "Total number of system errors reported",
		},
		[]string{"source", "critical"},
	)

	// GraphQLRequests tracks GraphQL requests per operation and outcome
	GraphQLRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annotator_graphql_requests_total",
			Help: "Total number of GraphQL requests",
		},
		[]string{"operation", "result"},
	)

	// GraphQLLatency tracks GraphQL request latency
	GraphQLLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "annotator_graphql_latency_seconds",
			Help:    "GraphQL request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// DBConnectionPoolUsage tracks error log database pool usage
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "annotator_db_connection_pool_usage_percent",
			Help: "Percentage of open database connections versus max",
		},
	)
)
