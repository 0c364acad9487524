package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors served at /metrics. The poll collectors are also
// written by the daemon's poll loop, so they live here as package-level
// vars rather than on the Server.
var (
	// PollsTotal counts full-state polls by outcome (clean, degraded,
	// error).
	PollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentra_bridge_polls_total",
			Help: "Total number of full-state vendor polls by outcome",
		},
		[]string{"status"},
	)

	// PollDuration observes how long a full-state poll takes.
	PollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sentra_bridge_poll_duration_seconds",
			Help:    "Duration of full-state vendor polls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// DevicesCatalogued tracks the current size of the device registry.
	DevicesCatalogued = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentra_bridge_devices",
			Help: "Number of devices currently catalogued",
		},
	)

	// EventsTotal counts broker events relayed to API consumers.
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentra_bridge_events_total",
			Help: "Total number of bridge events relayed by topic",
		},
		[]string{"topic"},
	)

	// StreamTransitions counts push-connection state changes. Reconnect
	// behaviour is the rate of the "connecting" label.
	StreamTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentra_bridge_stream_transitions_total",
			Help: "Total number of push-connection state transitions",
		},
		[]string{"state"},
	)

	// WSClientsGauge tracks connected WebSocket clients.
	WSClientsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentra_api_websocket_clients",
			Help: "Number of connected WebSocket clients",
		},
	)

	// RequestsTotal counts HTTP requests by method and response status.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentra_api_requests_total",
			Help: "Total number of HTTP requests by method and status",
		},
		[]string{"method", "status"},
	)
)
