package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "renewhub_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// SweepRuns counts expiry sweep executions by outcome (success|error|skipped).
	SweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renewhub_sweep_runs_total",
			Help: "Total number of expiry sweep runs",
		},
		[]string{"result"},
	)

	// NotificationsSent counts reminder emails by kind and delivery result.
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renewhub_notifications_total",
			Help: "Total number of notification emails dispatched",
		},
		[]string{"kind", "result"},
	)

	// ServicesTracked reports the number of services currently tracked.
	ServicesTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "renewhub_services_tracked",
			Help: "Number of services currently tracked",
		},
	)
)
