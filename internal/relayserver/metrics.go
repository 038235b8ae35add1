package relayserver

import "github.com/prometheus/client_golang/prometheus"

var (
	// ConnectedSubscribers tracks how many WebSocket connections are
	// currently joined to the hub.
	ConnectedSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bitchat_relay_connected_subscribers",
		Help: "Number of WebSocket connections currently joined to the relay.",
	})

	// EventsRelayedTotal counts every event fan-out delivery, incremented
	// once per matching subscription, not once per publish.
	EventsRelayedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bitchat_relay_events_relayed_total",
		Help: "Total number of events relayed to matching subscribers.",
	})

	// HTTPRequestsTotal and HTTPRequestDurationSeconds cover the relay's
	// plain HTTP surface (health check, metrics scrape, WS upgrade).
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bitchat_relay_http_requests_total",
		Help: "Total number of HTTP requests handled by the relay server.",
	}, []string{"method", "path", "status"})

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bitchat_relay_http_request_duration_seconds",
		Help:    "Duration of HTTP requests handled by the relay server.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// MustRegister registers every metric above with the default Prometheus
// registry. Call once at startup.
func MustRegister() {
	prometheus.MustRegister(
		ConnectedSubscribers,
		EventsRelayedTotal,
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
	)
}
