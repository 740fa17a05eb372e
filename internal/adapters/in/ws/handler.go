// Package ws is the relay's WebSocket transport. Each connection runs one read
// loop, one write loop and one dispatch loop: the read loop validates frames and
// hands them to the dispatch loop over a channel, the dispatch loop calls the
// router, and the write loop drains the connection's outbound buffer.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"relay/internal/core/application/router"
	"relay/internal/core/domain/model/event"
	"relay/internal/core/domain/model/kernel"
	"relay/internal/hub"
)

const (
	maxFrameBytes  = 64 << 10
	inboundBacklog = 16
	writeWait      = 10 * time.Second
)

// Router routes decoded inbound events.
type Router interface {
	Route(ctx context.Context, from router.Sender, in event.Inbound) error
}

// Config tunes per-connection behavior.
type Config struct {
	// OutboundBuffer is the size of each connection's outbound queue.
	OutboundBuffer int
	// MalformedLimit is the number of consecutive malformed frames after which
	// the connection is closed.
	MalformedLimit int
	// PongWait is how long a connection may stay silent, pongs included.
	PongWait time.Duration
}

func (c Config) withDefaults() Config {
	if c.OutboundBuffer <= 0 {
		c.OutboundBuffer = 64
	}
	if c.MalformedLimit <= 0 {
		c.MalformedLimit = 5
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	return c
}

// Handler upgrades HTTP requests to relay connections.
type Handler struct {
	registry *hub.Registry
	router   Router
	cfg      Config
	upgrader websocket.Upgrader
	now      func() time.Time
	logger   *slog.Logger
}

func NewHandler(registry *hub.Registry, r Router, cfg Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry: registry,
		router:   r,
		cfg:      cfg.withDefaults(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
		now:    time.Now,
		logger: logger.With("component", "websocket_transport"),
	}
}

// ServeHTTP accepts an optional role query parameter, declared before any join.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	role := kernel.RoleUnknown
	if raw := r.URL.Query().Get("role"); raw != "" {
		parsed, err := kernel.ParseRole(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		role = parsed
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := hub.NewConnection(h.cfg.OutboundBuffer, h.now())
	h.registry.Register(c)
	if role != kernel.RoleUnknown {
		_ = h.registry.MarkRole(c.ID(), role)
	}

	s := &session{
		handler: h,
		conn:    conn,
		client:  c,
		inbound: make(chan event.Inbound, inboundBacklog),
		logger:  h.logger.With("connection", c.ID().String()),
	}
	s.run(context.WithoutCancel(r.Context()))
}

type session struct {
	handler *Handler
	conn    *websocket.Conn
	client  *hub.Connection
	inbound chan event.Inbound
	logger  *slog.Logger
}

func (s *session) run(ctx context.Context) {
	s.logger.Info("connection opened", "role", s.client.Role().String())

	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		s.dispatchLoop(ctx)
	}()
	go s.writeLoop()

	s.readLoop()

	close(s.inbound)
	<-dispatched
	s.handler.registry.Unregister(s.client.ID())
	_ = s.conn.Close()
	s.logger.Info("connection closed")
}

func (s *session) readLoop() {
	pongWait := s.handler.cfg.PongWait
	s.conn.SetReadLimit(maxFrameBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	s.conn.SetPongHandler(func(string) error {
		s.client.Touch(s.handler.now())
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	malformed := 0
	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("read failed", "error", err)
			}
			return
		}
		s.client.Touch(s.handler.now())
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck

		if messageType != websocket.TextMessage {
			continue
		}

		in, err := event.DecodeFrame(data)
		if err != nil {
			malformed++
			s.logger.Warn("malformed frame", "consecutive", malformed, "error", err)
			s.sendError(err)
			if malformed >= s.handler.cfg.MalformedLimit {
				s.closeWith(websocket.ClosePolicyViolation, "too many malformed frames")
				return
			}
			continue
		}
		malformed = 0

		s.inbound <- in
	}
}

func (s *session) dispatchLoop(ctx context.Context) {
	for in := range s.inbound {
		// The role is read per event since joins may declare it.
		_ = s.handler.router.Route(ctx, router.FromConnection(s.client), in)
	}
}

func (s *session) writeLoop() {
	pingPeriod := s.handler.cfg.PongWait * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.client.Done():
			s.closeWith(websocket.CloseNormalClosure, "")
			_ = s.conn.Close()
			return
		case msg := <-s.client.Outbound():
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.logger.Debug("write failed", "error", err)
				_ = s.conn.Close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = s.conn.Close()
				return
			}
		}
	}
}

func (s *session) sendError(err error) {
	frame, encErr := json.Marshal(event.Outbound{
		Type: event.Error,
		Data: event.ErrorPayload{
			Code:    router.CodeMalformedEvent,
			Message: err.Error(),
		},
		EmittedAt: s.handler.now(),
	})
	if encErr != nil {
		return
	}
	s.client.Enqueue(frame)
}

func (s *session) closeWith(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)) //nolint:errcheck
}
