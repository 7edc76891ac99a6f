// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tether-support/tether/lib/netutil"
)

const (
	// maxMessageSize bounds a single inbound frame. Visitor messages
	// are short chat lines; anything larger is abuse.
	maxMessageSize = 64 << 10

	// pongWait is how long a connection may stay silent before the
	// read side gives up. pingInterval must be shorter so at least one
	// ping fits in every window.
	pongWait     = 60 * time.Second
	pingInterval = 50 * time.Second

	writeWait = 10 * time.Second
)

// Handler consumes validated visitor events. Dispatch is synchronous
// within a connection's read loop, so per-connection event order is
// preserved.
type Handler interface {
	HandleHello(ctx context.Context, connID, proposedSessionID string)
	HandleClientMessage(ctx context.Context, connID, text string)
	HandleClientEnd(ctx context.Context, connID string)
	HandleDisconnect(connID string)
}

// Config configures a Server.
type Config struct {
	// AllowedOrigins lists browser origins accepted during the
	// websocket handshake. Empty (or a single "*") allows all.
	// Requests without an Origin header always pass: those are
	// non-browser clients.
	AllowedOrigins []string
	// Logger receives structured log output. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Server is the websocket endpoint visitors connect to. It implements
// http.Handler for the upgrade path and the bridge's notifier surface
// for outbound events.
type Server struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	handler Handler

	nextConnID atomic.Int64

	mu    sync.Mutex
	conns map[string]*connection
}

// connection pairs a websocket with the mutex serializing writes to
// it. gorilla/websocket allows one concurrent writer only.
type connection struct {
	id string
	ws *websocket.Conn
	mu sync.Mutex
}

// NewServer creates a Server. SetHandler must be called before the
// server accepts its first connection.
func NewServer(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	allowAll := len(config.AllowedOrigins) == 0 ||
		(len(config.AllowedOrigins) == 1 && config.AllowedOrigins[0] == "*")
	originSet := make(map[string]bool, len(config.AllowedOrigins))
	for _, origin := range config.AllowedOrigins {
		originSet[origin] = true
	}

	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if allowAll {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return originSet[origin]
			},
		},
		logger: logger,
		conns:  make(map[string]*connection),
	}
}

// SetHandler installs the event consumer. Required; set once during
// wiring, before the HTTP server starts.
func (s *Server) SetHandler(handler Handler) {
	s.handler = handler
}

// ServeHTTP upgrades the request and runs the connection's read loop
// until the peer goes away.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.handler == nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	conn := &connection{
		id: "conn-" + strconv.FormatInt(s.nextConnID.Add(1), 10),
		ws: ws,
	}
	s.register(conn)
	s.logger.Info("connection opened", "conn_id", conn.id, "remote", r.RemoteAddr)

	s.readLoop(r.Context(), conn)

	s.unregister(conn.id)
	s.handler.HandleDisconnect(conn.id)
	_ = ws.Close()
	s.logger.Info("connection closed", "conn_id", conn.id)
}

func (s *Server) register(conn *connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn.id] = conn
}

func (s *Server) unregister(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, connID)
}

func (s *Server) connByID(connID string) (*connection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn, ok := s.conns[connID]
	return conn, ok
}

// readLoop reads frames until error or disconnect, dispatching each
// envelope to the handler. Keepalive pings run alongside: the read
// deadline advances on every pong, and a silent peer times out.
func (s *Server) readLoop(ctx context.Context, conn *connection) {
	conn.ws.SetReadLimit(maxMessageSize)
	_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	stopPings := s.startKeepalive(conn)
	defer stopPings()

	for {
		_, payload, err := conn.ws.ReadMessage()
		if err != nil {
			if !netutil.IsExpectedCloseError(err) &&
				!websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				s.logger.Warn("read failed", "conn_id", conn.id, "error", err)
			}
			return
		}

		var envelope Envelope
		if err := json.Unmarshal(payload, &envelope); err != nil {
			s.logger.Debug("malformed frame", "conn_id", conn.id, "error", err)
			continue
		}
		s.dispatch(ctx, conn.id, envelope)
	}
}

func (s *Server) dispatch(ctx context.Context, connID string, envelope Envelope) {
	switch envelope.Event {
	case EventHello:
		// Payload is a JSON string; null and absent mean "mint me one".
		var proposed string
		if len(envelope.Data) > 0 && string(envelope.Data) != "null" {
			if err := json.Unmarshal(envelope.Data, &proposed); err != nil {
				s.logger.Debug("malformed hello payload", "conn_id", connID, "error", err)
			}
		}
		s.handler.HandleHello(ctx, connID, proposed)

	case EventClientMessage:
		var msg ClientMessage
		if err := json.Unmarshal(envelope.Data, &msg); err != nil {
			// Older widgets send the text as a bare string.
			if strErr := json.Unmarshal(envelope.Data, &msg.Text); strErr != nil {
				s.logger.Debug("malformed client_message payload", "conn_id", connID, "error", err)
				return
			}
		}
		s.handler.HandleClientMessage(ctx, connID, msg.Text)

	case EventClientEnd:
		s.handler.HandleClientEnd(ctx, connID)

	default:
		s.logger.Debug("unknown event", "conn_id", connID, "event", envelope.Event)
	}
}

// startKeepalive pings the peer on an interval, writing under the
// connection's write mutex. The returned func stops the loop.
func (s *Server) startKeepalive(conn *connection) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				conn.mu.Lock()
				_ = conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
				err := conn.ws.WriteMessage(websocket.PingMessage, nil)
				conn.mu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()
	return func() { close(done) }
}

// Emit sends one event to a connection. An error means the frame was
// not delivered; the connection may already be gone.
func (s *Server) Emit(connID, event string, payload any) error {
	conn, ok := s.connByID(connID)
	if !ok {
		return fmt.Errorf("channel: connection %s not found", connID)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("channel: encode %s payload: %w", event, err)
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("channel: encode %s envelope: %w", event, err)
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	_ = conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("channel: write %s to %s: %w", event, connID, err)
	}
	return nil
}

// SessionResolved, Ack, AgentMessage, and SessionClosed make Server
// the bridge's outbound notifier.

func (s *Server) SessionResolved(connID, sessionID string) error {
	return s.Emit(connID, EventSession, sessionID)
}

func (s *Server) Ack(connID string, ok bool, errorReason string) error {
	return s.Emit(connID, EventServerAck, Ack{OK: ok, Error: errorReason})
}

func (s *Server) AgentMessage(connID, text string, ts int64) error {
	return s.Emit(connID, EventAdminMessage, AdminMessage{Text: text, TS: ts})
}

func (s *Server) SessionClosed(connID string, cause string) error {
	return s.Emit(connID, EventSessionClosed, Closed{Cause: cause})
}

// Shutdown closes every live connection with a going-away frame. Read
// loops observe the close and run their normal teardown.
func (s *Server) Shutdown() {
	s.mu.Lock()
	conns := make([]*connection, 0, len(s.conns))
	for _, conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	message := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, conn := range conns {
		conn.mu.Lock()
		_ = conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.ws.WriteMessage(websocket.CloseMessage, message)
		conn.mu.Unlock()
		_ = conn.ws.Close()
	}
}
