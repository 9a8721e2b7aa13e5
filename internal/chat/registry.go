package chat

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/omochice/room-chat/pkg/protocol"
)

// Client is the registry's record of an accepted connection.
type Client struct {
	ID    ConnID
	Conn  Conn
	Codec protocol.Codec
	name  string
}

// Registry owns the set of live connections.
type Registry struct {
	mu      sync.RWMutex
	clients map[ConnID]*Client
	log     zerolog.Logger
	metrics *Metrics
}

// NewRegistry creates an empty registry.
func NewRegistry(log zerolog.Logger, metrics *Metrics) *Registry {
	return &Registry{
		clients: make(map[ConnID]*Client),
		log:     log,
		metrics: metrics,
	}
}

// Accept records conn and returns its new identity.
func (r *Registry) Accept(conn Conn, codec protocol.Codec) ConnID {
	c := &Client{ID: NewConnID(), Conn: conn, Codec: codec}

	r.mu.Lock()
	r.clients[c.ID] = c
	n := len(r.clients)
	r.mu.Unlock()

	r.metrics.setConnections(n)
	return c.ID
}

// Remove forgets id. It returns false if id was not registered, so the close path
// runs at most once per connection.
func (r *Registry) Remove(id ConnID) bool {
	r.mu.Lock()
	_, ok := r.clients[id]
	delete(r.clients, id)
	n := len(r.clients)
	r.mu.Unlock()

	if ok {
		r.metrics.setConnections(n)
	}
	return ok
}

// Get returns the record for id.
func (r *Registry) Get(id ConnID) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	return c, ok
}

// SetName fixes the display name of id unless one is already set, and returns the
// name in effect.
func (r *Registry) SetName(id ConnID, name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[id]
	if !ok {
		return name
	}
	if c.name == "" {
		c.name = name
	}
	return c.name
}

// Name returns the display name of id, or "" before its first join.
func (r *Registry) Name(id ConnID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.clients[id]; ok {
		return c.name
	}
	return ""
}

// Send delivers f to id if it is still connected. Closed or congested connections
// are skipped; the failure is logged and never returned.
func (r *Registry) Send(id ConnID, f protocol.Frame) bool {
	c, ok := r.Get(id)
	if !ok {
		r.metrics.dropped("closed")
		return false
	}

	data, err := c.Codec.Encode(f)
	if err != nil {
		r.log.Error().Err(err).Str("conn", id.String()).Msg("encode outbound frame")
		r.metrics.dropped("encode")
		return false
	}
	if err := c.Conn.Send(data); err != nil {
		r.log.Debug().Err(err).Str("conn", id.String()).Stringer("type", f.FrameType()).Msg("send skipped")
		r.metrics.dropped("send")
		return false
	}
	return true
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
