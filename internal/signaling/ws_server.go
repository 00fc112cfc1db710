package signaling

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/padport/signaling-relay/internal/config"
	"github.com/padport/signaling-relay/internal/metrics"
	"github.com/padport/signaling-relay/internal/origin"
	"github.com/padport/signaling-relay/internal/ratelimit"
)

const wsWriteWait = 1 * time.Second

// Gateway upgrades HTTP requests to WebSocket connections and pumps their
// frames into the router.
//
// It owns connection lifecycle and transport hardening: origin checks, frame
// size and rate limits, idle timeouts, and keepalive pings. Protocol semantics
// live entirely in the Router.
type Gateway struct {
	cfg      config.Config
	router   *Router
	metrics  *metrics.Metrics
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewGateway(cfg config.Config, router *Router, m *metrics.Metrics, logger *slog.Logger) *Gateway {
	return &Gateway{
		cfg:     cfg,
		router:  router,
		metrics: m,
		log:     logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return origin.CheckHeader(r.Header.Get("Origin"), r.Host, cfg.AllowedOrigins)
			},
		},
	}
}

// wsConn adapts a gorilla connection to the router's outbound interface. The
// write mutex serializes concurrent sends: relayed frames for one target can
// originate from many reader goroutines.
type wsConn struct {
	id   string
	sock *websocket.Conn

	writeMu sync.Mutex
}

func (c *wsConn) WriteText(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.sock.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.sock.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) writeControl(messageType int, data []byte) error {
	return c.sock.WriteControl(messageType, data, time.Now().Add(wsWriteWait))
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sock, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		g.log.Warn("websocket upgrade rejected", "remote_addr", r.RemoteAddr, "err", err)
		return
	}

	conn := &wsConn{id: uuid.NewString(), sock: sock}
	log := g.log.With("conn_id", conn.id, "remote_addr", r.RemoteAddr)

	g.metrics.Connections.Inc()
	g.metrics.OpenConnections.Inc()
	log.Info("websocket connected")

	defer func() {
		g.router.HandleDisconnect(conn)
		g.metrics.OpenConnections.Dec()
		_ = sock.Close()
		log.Info("websocket disconnected")
	}()

	sock.SetReadLimit(g.cfg.MaxMessageBytes)
	_ = sock.SetReadDeadline(time.Now().Add(g.cfg.WSIdleTimeout))
	sock.SetPongHandler(func(string) error {
		return sock.SetReadDeadline(time.Now().Add(g.cfg.WSIdleTimeout))
	})

	stopPings := g.keepalive(conn, log)
	defer stopPings()

	limiter := ratelimit.NewBucket(ratelimit.RealClock{}, g.cfg.MaxMessagesPerSecond, g.cfg.MaxMessagesPerSecond)

	for {
		msgType, data, err := sock.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseMessageTooBig) || err == websocket.ErrReadLimit {
				g.metrics.Dropped.WithLabelValues(metrics.DropReasonTooLarge).Inc()
				log.Warn("closing connection, message too large")
				return
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("websocket read failed", "err", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			g.closeWith(conn, websocket.CloseUnsupportedData, "expected text message", log)
			return
		}

		if !limiter.Allow() {
			g.metrics.Dropped.WithLabelValues(metrics.DropReasonRateLimited).Inc()
			g.closeWith(conn, websocket.ClosePolicyViolation, "rate limit exceeded", log)
			return
		}

		_ = sock.SetReadDeadline(time.Now().Add(g.cfg.WSIdleTimeout))
		g.router.HandleMessage(conn, data)
	}
}

// keepalive pings the peer on a fixed interval until the returned stop
// function is called. A peer that answers no ping within the idle timeout is
// dropped by the read deadline.
func (g *Gateway) keepalive(conn *wsConn, log *slog.Logger) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(g.cfg.WSPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.writeControl(websocket.PingMessage, nil); err != nil {
					log.Debug("keepalive ping failed", "err", err)
					return
				}
			}
		}
	}()
	return func() { close(done) }
}

func (g *Gateway) closeWith(conn *wsConn, code int, reason string, log *slog.Logger) {
	log.Warn("closing connection", "code", code, "reason", reason)
	_ = conn.writeControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
}
