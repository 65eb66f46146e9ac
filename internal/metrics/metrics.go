package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mauzenfan_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mauzenfan_http_request_duration_seconds",
			Help:    "Histogram of response durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	// EventsDispatched counts fan-out events by type and outcome
	// (delivered, invalid, dropped).
	EventsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mauzenfan_events_dispatched_total",
			Help: "Notification events handled by the dispatcher",
		},
		[]string{"type", "outcome"},
	)

	WebSocketDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mauzenfan_websocket_deliveries_total",
			Help: "Envelopes handed to live WebSocket connections",
		},
		[]string{"type"},
	)

	PushAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mauzenfan_push_attempts_total",
			Help: "Push gateway calls by platform and result",
		},
		[]string{"platform", "result"},
	)

	PushDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mauzenfan_push_duration_seconds",
			Help:    "Duration of single push gateway calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"platform"},
	)

	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mauzenfan_rate_limited_total",
			Help: "Requests rejected by the device rate limiter",
		},
	)

	ConnectedClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mauzenfan_websocket_clients",
			Help: "Currently connected WebSocket clients",
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestCount, RequestDuration, EventsDispatched,
		WebSocketDeliveries, PushAttempts, PushDuration, RateLimited, ConnectedClients)
}
