package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Stage execution latency (milliseconds), per stage and final status.
	StageLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_latency_ms",
			Help:    "Pipeline stage execution latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"stage", "status"},
	)

	// Attempts spent on a stage before it settled.
	StageAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_attempts",
			Help:    "Number of provider attempts per stage execution",
			Buckets: []float64{1, 2, 3, 4, 5, 8},
		},
		[]string{"stage"},
	)

	// Capability provider call latency (milliseconds).
	ProviderCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_call_latency_ms",
			Help:    "Capability provider call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100ms to ~100s
		},
		[]string{"endpoint", "status"},
	)

	// Terminal case outcomes.
	CaseFinishedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_case_finished_count",
			Help: "Total number of processing cases reaching a terminal state",
		},
		[]string{"state", "action_kind"}, // state: completed, failed
	)

	// MQ consumption latency (milliseconds).
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		},
		[]string{"routing_key", "queue"},
	)

	// HTTP request latency (seconds).
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// Slow database queries.
	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Total number of slow database queries",
		},
		[]string{"query"},
	)
)

// RecordStageLatency records one stage execution.
func RecordStageLatency(stage, status string, duration time.Duration) {
	StageLatency.WithLabelValues(stage, status).Observe(float64(duration.Milliseconds()))
}

// RecordStageAttempts records how many provider attempts a stage took.
func RecordStageAttempts(stage string, attempts int) {
	StageAttempts.WithLabelValues(stage).Observe(float64(attempts))
}

// RecordProviderCallLatency records one remote capability call.
func RecordProviderCallLatency(endpoint, status string, duration time.Duration) {
	ProviderCallLatency.WithLabelValues(endpoint, status).Observe(float64(duration.Milliseconds()))
}

// IncrementCaseFinished counts a terminal case by state and action kind.
func IncrementCaseFinished(state, actionKind string) {
	CaseFinishedCount.WithLabelValues(state, actionKind).Inc()
}

// RecordMQConsumeLatency records MQ message handling time.
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

// RecordHTTPRequestDuration records one HTTP request.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementSlowQuery counts a slow query by truncated SQL text.
func IncrementSlowQuery(query string, _ time.Duration) {
	SlowQueryCount.WithLabelValues(query).Inc()
}
