// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// WebhooksTotal counts classified webhook deliveries.
	WebhooksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formbot_webhooks_total",
			Help: "Webhook deliveries by event and classified intent",
		},
		[]string{"event", "intent"},
	)

	// OutboundMessagesTotal counts messages posted to Chatwoot.
	OutboundMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formbot_outbound_messages_total",
			Help: "Outbound messages by content type and result",
		},
		[]string{"content_type", "status"},
	)

	// MenuFallbacksTotal counts retries with an alternate encoding.
	MenuFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "formbot_menu_fallbacks_total",
			Help: "Messages re-sent with a fallback encoding after rejection",
		},
	)

	// SubmissionsTotal counts completed forms.
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formbot_submissions_total",
			Help: "Completed form submissions",
		},
		[]string{"form"},
	)

	// StageTransitionsTotal counts dialogue stage changes.
	StageTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formbot_stage_transitions_total",
			Help: "Dialogue stage transitions",
		},
		[]string{"from", "to"},
	)

	// RelayPublishTotal counts NATS relay publishes.
	RelayPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formbot_relay_publish_total",
			Help: "Relay publishes by kind and result",
		},
		[]string{"kind", "status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordWebhook records one classified webhook delivery.
func RecordWebhook(event, intent string) {
	if event == "" {
		event = "unknown"
	}
	WebhooksTotal.WithLabelValues(event, intent).Inc()
}

// RecordOutbound records one outbound send attempt.
func RecordOutbound(contentType, status string) {
	OutboundMessagesTotal.WithLabelValues(contentType, status).Inc()
}

// RecordTransition records a stage change.
func RecordTransition(from, to string) {
	StageTransitionsTotal.WithLabelValues(from, to).Inc()
}
