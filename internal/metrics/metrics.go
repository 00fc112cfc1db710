// Package metrics defines the relay's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Drop reasons for the dropped_total counter.
const (
	DropReasonMalformed    = "malformed"
	DropReasonRoomNotFound = "room_not_found"
	DropReasonUserNotFound = "user_not_found"
	DropReasonRateLimited  = "rate_limited"
	DropReasonTooLarge     = "message_too_large"
	DropReasonTooManyRooms = "too_many_rooms"
	// DropReasonUnrouted covers message types the protocol names but the relay
	// does not route (UserConnected, UserDisconnected, CheckIn).
	DropReasonUnrouted = "unrouted_type"
)

// Metrics holds the relay's counters and gauges on a private registry so tests
// can instantiate isolated sets without duplicate-registration panics.
type Metrics struct {
	registry *prometheus.Registry

	RoomsCreated  prometheus.Counter
	PeerIDsIssued prometheus.Counter
	Joins         *prometheus.CounterVec
	Relayed       *prometheus.CounterVec
	Dropped       *prometheus.CounterVec
	Connections   prometheus.Counter

	OpenRooms       prometheus.Gauge
	OpenConnections prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RoomsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "signaling_relay_rooms_created_total",
			Help: "Rooms created by RoomCode requests.",
		}),
		PeerIDsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "signaling_relay_peer_ids_issued_total",
			Help: "Peer IDs issued by Id requests.",
		}),
		Joins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signaling_relay_joins_total",
			Help: "Join requests by result.",
		}, []string{"result"}),
		Relayed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signaling_relay_relayed_total",
			Help: "Negotiation messages forwarded, by message type.",
		}, []string{"type"}),
		Dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signaling_relay_dropped_total",
			Help: "Inbound messages dropped, by reason.",
		}, []string{"reason"}),
		Connections: factory.NewCounter(prometheus.CounterOpts{
			Name: "signaling_relay_ws_connections_total",
			Help: "WebSocket connections accepted.",
		}),

		OpenRooms: factory.NewGauge(prometheus.GaugeOpts{
			Name: "signaling_relay_open_rooms",
			Help: "Rooms currently active.",
		}),
		OpenConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "signaling_relay_open_connections",
			Help: "WebSocket connections currently open.",
		}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
