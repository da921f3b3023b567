package ws

import "github.com/prometheus/client_golang/prometheus"

// Realtime-layer Prometheus collectors. Label cardinality is kept bounded:
// kind is "chat" or "comment", code is one of the stable error codes.
var (
	connectionsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections",
			Help: "Current number of live websocket sessions.",
		},
	)

	broadcastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_broadcasts_total",
			Help: "Total number of room broadcasts by kind.",
		},
		[]string{"kind"},
	)

	framesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_frames_rejected_total",
			Help: "Total number of inbound frames rejected, by error code.",
		},
		[]string{"code"},
	)

	authFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ws_auth_failures_total",
			Help: "Total number of websocket upgrades rejected at the auth gate.",
		},
	)
)

func init() {
	prometheus.MustRegister(connectionsGauge, broadcastsTotal, framesRejected, authFailures)
}
