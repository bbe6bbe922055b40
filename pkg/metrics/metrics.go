package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Total number of slow database queries",
		},
		[]string{"sql"},
	)

	ProjectTransitionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "project_transition_count",
			Help: "Total number of project status transitions",
		},
		[]string{"to"}, // to: pending, verified, flagged, active, completed, failed
	)

	MilestoneResolutionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milestone_resolution_count",
			Help: "Total number of milestone approval resolutions",
		},
		[]string{"outcome"}, // outcome: approved, disputed
	)

	ContributionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contribution_count",
			Help: "Total number of contributions recorded",
		},
		[]string{"status"}, // status: success, rejected
	)

	EscrowReleasedCents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "escrow_released_cents_total",
			Help: "Total amount of escrow released to creators, in cents",
		},
	)

	RefundIssuedCents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "refund_issued_cents_total",
			Help: "Total amount refunded to backers, in cents",
		},
	)

	WebhookDeliveryLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webhook_delivery_latency_ms",
			Help:    "Outgoing webhook delivery latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"status"}, // status: success, error, 4xx, 5xx
	)
)

func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func IncrementSlowQuery(sql string, duration time.Duration) {
	SlowQueryCount.WithLabelValues(sql).Inc()
}

func IncrementProjectTransition(to string) {
	ProjectTransitionCount.WithLabelValues(to).Inc()
}

func IncrementMilestoneResolution(outcome string) {
	MilestoneResolutionCount.WithLabelValues(outcome).Inc()
}

func IncrementContribution(status string) {
	ContributionCount.WithLabelValues(status).Inc()
}

func RecordWebhookDeliveryLatency(status string, duration time.Duration) {
	WebhookDeliveryLatency.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}
