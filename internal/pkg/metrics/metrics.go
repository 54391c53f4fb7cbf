/*
Package metrics provides Prometheus instrumentation for the relay.

It exposes gauges for live connections and joined users, counters for relayed events and
dropped connections, and a histogram of room fan-out latency.
*/
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsActive tracks the current number of attached connections.
	ConnectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "roomrelay_connections_active",
		Help: "Current number of attached connections",
	})

	// UsersJoined tracks the current number of connections that have joined a room.
	UsersJoined = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "roomrelay_users_joined",
		Help: "Current number of users joined to a room",
	})

	// EventsTotal counts handled client events, labeled by event name and outcome.
	EventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roomrelay_events_total",
		Help: "Client events handled",
	}, []string{"event", "outcome"}) // outcome = "ok", "validation", "not_found", "delivery", "internal"

	// DroppedConnections counts connections force-closed because delivery stalled or failed.
	DroppedConnections = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "roomrelay_dropped_connections_total",
		Help: "Connections dropped after a failed or stalled delivery",
	})

	// FanoutDuration records how long a room broadcast takes to reach every member.
	FanoutDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "roomrelay_fanout_duration_seconds",
		Help:    "Room broadcast duration in seconds",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 2, 5},
	})

	// HistoryDropped counts message records the persistence writer could not queue or store.
	HistoryDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "roomrelay_history_dropped_total",
		Help: "Message records dropped by the history writer",
	})
)

func init() {
	prometheus.MustRegister(
		ConnectionsActive,
		UsersJoined,
		EventsTotal,
		DroppedConnections,
		FanoutDuration,
		HistoryDropped,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
