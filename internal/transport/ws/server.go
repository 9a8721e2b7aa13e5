package ws

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/omochice/room-chat/internal/chat"
	"github.com/omochice/room-chat/pkg/protocol"
)

// Options tunes the WebSocket endpoint.
type Options struct {
	Logger         zerolog.Logger
	AllowedOrigins []string
	SendBuffer     int
	MaxMessageSize int64
	PingInterval   time.Duration
}

// Handler upgrades HTTP requests to WebSocket and delegates frames to a Hub.
type Handler struct {
	hub      *chat.Hub
	opts     Options
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewHandler creates a WebSocket handler that uses the provided Hub.
func NewHandler(hub *chat.Hub, opts Options) *Handler {
	return &Handler{
		hub:  hub,
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(opts.AllowedOrigins),
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.opts.Logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("failed to upgrade connection")
		return
	}
	if h.opts.MaxMessageSize > 0 {
		wsConn.SetReadLimit(h.opts.MaxMessageSize)
	}

	// An upgrade may finish after Close has run; such sockets are not served.
	if !h.track(wsConn) {
		wsConn.Close()
		return
	}

	conn := NewConn(wsConn, r.RemoteAddr, h.opts.SendBuffer)
	id := h.hub.Accept(conn, protocol.JSON)

	go h.writeLoop(id, conn)
	go h.readLoop(id, conn)
}

func (h *Handler) readLoop(id chat.ConnID, conn *Conn) {
	defer h.wg.Done()
	defer func() {
		h.untrack(conn.ws)
		h.hub.Disconnect(id)
		conn.Close()
	}()

	for {
		messageType, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				h.opts.Logger.Warn().Err(err).Str("conn", id.String()).Msg("websocket read error")
			}
			return
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		h.hub.Receive(id, data)
	}
}

func (h *Handler) writeLoop(id chat.ConnID, conn *Conn) {
	defer h.wg.Done()
	if err := conn.writeLoop(h.opts.PingInterval); err != nil {
		h.opts.Logger.Debug().Err(err).Str("conn", id.String()).Msg("failed to write to websocket client")
	}
}

// track registers c and reserves its two loops. It returns false once Close has run.
func (h *Handler) track(c *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conns[c] = struct{}{}
	h.wg.Add(2)
	return true
}

func (h *Handler) untrack(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}

// Close closes every open WebSocket and waits for their loops to finish.
// The close path of each connection runs as if the client had gone away.
func (h *Handler) Close() {
	h.mu.Lock()
	h.closed = true
	for c := range h.conns {
		c.Close()
	}
	h.mu.Unlock()
	h.wg.Wait()
}

// checkOrigin allows requests without an Origin header, and any origin when the list
// is empty or contains "*".
func checkOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}
