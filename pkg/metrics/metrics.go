package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotificationsCreated counts persisted notification rows by type and result (ok|error).
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealdesk_notifications_created_total",
			Help: "Total number of notification persistence attempts",
		},
		[]string{"type", "result"},
	)

	// BroadcastsDispatched counts realtime broadcast envelopes by stream.
	BroadcastsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealdesk_broadcasts_dispatched_total",
			Help: "Total number of best-effort realtime broadcasts",
		},
		[]string{"stream"},
	)

	// WebhookEvents counts e-signature webhook events by document status and
	// processing result. Rejected deliveries count under status "unauthorized".
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealdesk_webhook_events_total",
			Help: "Total number of e-signature webhook events processed",
		},
		[]string{"status", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dealdesk_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
