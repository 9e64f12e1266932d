// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatcher_events_received_total",
			Help: "Total number of change events received",
		},
		[]string{"event_kind"},
	)

	EventOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatcher_event_outcomes_total",
			Help: "Total number of processed events by outcome",
		},
		[]string{"kind", "status", "reason"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatcher_notifications_sent_total",
			Help: "Total number of notifications handed to the sender",
		},
		[]string{"kind", "notification_type"},
	)

	OperationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatcher_operation_failures_total",
			Help: "Total number of failed collaborator calls",
		},
		[]string{"operation", "error_code"},
	)

	EventDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatcher_event_duration_seconds",
			Help:    "Duration of event processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	EventsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatcher_events_active",
			Help: "Number of events currently being processed",
		},
	)
)
