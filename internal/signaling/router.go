package signaling

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/padport/signaling-relay/internal/lobby"
	"github.com/padport/signaling-relay/internal/metrics"
)

// RouterConfig wires the router's collaborators.
type RouterConfig struct {
	Registry *lobby.Registry
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	// CleanupOnDisconnect removes a dropped connection's registry entries when
	// the gateway reports the disconnect.
	CleanupOnDisconnect bool
}

// Router is the relay's protocol logic. It is purely reactive: each inbound
// frame is handled to completion on the caller's goroutine, with no session
// state beyond what the registry holds.
type Router struct {
	reg     *lobby.Registry
	metrics *metrics.Metrics
	log     *slog.Logger
	cleanup bool
}

func NewRouter(cfg RouterConfig) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.New()
	}
	return &Router{
		reg:     cfg.Registry,
		metrics: m,
		log:     logger,
		cleanup: cfg.CleanupOnDisconnect,
	}
}

// HandleMessage processes one inbound text frame from conn.
//
// Failures are local: a malformed frame, an absent room, or an absent target
// is logged and counted, and nothing is echoed to the sender. Join is the one
// type with an explicit failure response.
func (rt *Router) HandleMessage(conn lobby.Conn, raw []byte) {
	msg, err := parseMessage(raw)
	if err != nil {
		rt.metrics.Dropped.WithLabelValues(metrics.DropReasonMalformed).Inc()
		rt.log.Warn("dropping malformed message", "err", err)
		return
	}

	switch msg.Type {
	case messageTypeID:
		rt.handleIDRequest(conn)
	case messageTypeRoomCode:
		rt.handleRoomCodeRequest(conn)
	case messageTypeJoin:
		rt.handleJoin(conn, msg)
	case messageTypeOffer:
		rt.relayOffer(msg, raw)
	case messageTypeAnswer:
		rt.relayAnswer(msg, raw)
	case messageTypeCandidate:
		rt.relayCandidate(msg, raw)
	default:
		// Known to the protocol, not routed by the relay.
		rt.metrics.Dropped.WithLabelValues(metrics.DropReasonUnrouted).Inc()
		rt.log.Debug("dropping unrouted message type", "type", msg.Type)
	}
}

// HandleDisconnect is called by the gateway when a connection closes.
func (rt *Router) HandleDisconnect(conn lobby.Conn) {
	if !rt.cleanup {
		return
	}
	users, rooms := rt.reg.DropConn(conn)
	if users > 0 || rooms > 0 {
		rt.metrics.OpenRooms.Sub(float64(rooms))
		rt.log.Info("cleaned up after disconnect", "removed_users", users, "removed_rooms", rooms)
	}
}

func (rt *Router) handleIDRequest(conn lobby.Conn) {
	id, err := rt.reg.UniquePeerID()
	if err != nil {
		rt.log.Error("failed to generate peer id", "err", err)
		return
	}
	if err := rt.reg.IssuePeerID(id); err != nil {
		// UniquePeerID only returns unissued values, so this indicates a bug.
		rt.log.Error("failed to record peer id", "id", id, "err", err)
		return
	}
	rt.metrics.PeerIDsIssued.Inc()
	rt.log.Info("issued peer id", "id", id)

	rt.send(conn, envelope{Type: messageTypeID, ID: ptr(id)})
}

func (rt *Router) handleRoomCodeRequest(conn lobby.Conn) {
	code, err := rt.reg.UniqueRoomCode()
	if err != nil {
		rt.log.Error("failed to generate room code", "err", err)
		return
	}
	if _, err := rt.reg.CreateRoom(code, conn); err != nil {
		if errors.Is(err, lobby.ErrTooManyRooms) {
			rt.metrics.Dropped.WithLabelValues(metrics.DropReasonTooManyRooms).Inc()
			rt.log.Warn("room quota reached, dropping room code request")
			return
		}
		rt.log.Error("failed to create room", "room_code", code, "err", err)
		return
	}
	rt.metrics.RoomsCreated.Inc()
	rt.metrics.OpenRooms.Inc()
	rt.log.Info("room created", "room_code", code)

	rt.send(conn, envelope{Type: messageTypeRoomCode, RoomCode: code})
}

func (rt *Router) handleJoin(conn lobby.Conn, msg envelope) {
	if err := rt.reg.AddUser(msg.RoomCode, *msg.From, conn); err != nil {
		rt.metrics.Joins.WithLabelValues("room_not_found").Inc()
		rt.log.Info("join to unknown room", "room_code", msg.RoomCode, "from", *msg.From)
		rt.send(conn, envelope{Type: messageTypeJoin, Successful: ptr(false), RoomCode: msg.RoomCode})
		return
	}
	rt.metrics.Joins.WithLabelValues("ok").Inc()
	rt.log.Info("peer joined room", "room_code", msg.RoomCode, "from", *msg.From)

	rt.send(conn, envelope{Type: messageTypeJoin, Successful: ptr(true), RoomCode: msg.RoomCode})
}

func (rt *Router) relayOffer(msg envelope, raw []byte) {
	room, ok := rt.reg.Room(msg.RoomCode)
	if !ok {
		rt.drop(metrics.DropReasonRoomNotFound, msg)
		return
	}
	rt.metrics.Relayed.WithLabelValues(string(messageTypeOffer)).Inc()
	rt.log.Debug("relaying offer to host",
		"room_code", msg.RoomCode, "from", *msg.From, "sdp", sdpPreview(msg.SDP))
	rt.forward(room.Host(), raw, msg)
}

func (rt *Router) relayAnswer(msg envelope, raw []byte) {
	room, ok := rt.reg.Room(msg.RoomCode)
	if !ok {
		rt.drop(metrics.DropReasonRoomNotFound, msg)
		return
	}
	user, ok := room.User(*msg.To)
	if !ok {
		rt.drop(metrics.DropReasonUserNotFound, msg)
		return
	}
	rt.metrics.Relayed.WithLabelValues(string(messageTypeAnswer)).Inc()
	rt.log.Debug("relaying answer to peer",
		"room_code", msg.RoomCode, "to", *msg.To, "sdp", sdpPreview(msg.SDP))
	rt.forward(user, raw, msg)
}

// relayCandidate routes by the sender's ID: the reserved host ID means
// host-to-client (addressed by "to"); anything else is client-to-host and goes
// to the room's single host connection regardless of "to".
func (rt *Router) relayCandidate(msg envelope, raw []byte) {
	room, ok := rt.reg.Room(msg.RoomCode)
	if !ok {
		rt.drop(metrics.DropReasonRoomNotFound, msg)
		return
	}

	if *msg.From == lobby.HostPeerID {
		user, ok := room.User(*msg.To)
		if !ok {
			rt.drop(metrics.DropReasonUserNotFound, msg)
			return
		}
		rt.metrics.Relayed.WithLabelValues(string(messageTypeCandidate)).Inc()
		rt.log.Debug("relaying host candidate to peer",
			"room_code", msg.RoomCode, "to", *msg.To, "candidate", msg.Name)
		rt.forward(user, raw, msg)
		return
	}

	rt.metrics.Relayed.WithLabelValues(string(messageTypeCandidate)).Inc()
	rt.log.Debug("relaying peer candidate to host",
		"room_code", msg.RoomCode, "from", *msg.From, "candidate", msg.Name)
	rt.forward(room.Host(), raw, msg)
}

// forward writes the original frame bytes, unmodified, to the target.
func (rt *Router) forward(target lobby.Conn, raw []byte, msg envelope) {
	if err := target.WriteText(raw); err != nil {
		rt.log.Warn("forward failed", "type", msg.Type, "room_code", msg.RoomCode, "err", err)
	}
}

func (rt *Router) send(conn lobby.Conn, msg envelope) {
	data, err := json.Marshal(msg)
	if err != nil {
		rt.log.Error("failed to encode response", "type", msg.Type, "err", err)
		return
	}
	if err := conn.WriteText(data); err != nil {
		rt.log.Warn("response send failed", "type", msg.Type, "err", err)
	}
}

func (rt *Router) drop(reason string, msg envelope) {
	rt.metrics.Dropped.WithLabelValues(reason).Inc()
	rt.log.Warn("dropping unroutable message", "type", msg.Type, "room_code", msg.RoomCode, "reason", reason)
}
