package chat

import (
	"github.com/rs/zerolog"

	"github.com/omochice/room-chat/pkg/protocol"
)

// Options configures a Hub.
type Options struct {
	Logger zerolog.Logger
	// Metrics may be nil.
	Metrics *Metrics
	// Rooms replaces the default in-memory directory.
	Rooms Rooms
	// ReclaimEmptyRooms drops rooms when their last member leaves.
	// Ignored when Rooms is set.
	ReclaimEmptyRooms bool
}

// Hub ties the registry, directory, broadcaster and router together.
// All transports share a single Hub instance.
type Hub struct {
	registry    *Registry
	rooms       Rooms
	broadcaster *Broadcaster
	router      *Router
	log         zerolog.Logger
}

// NewHub creates a Hub.
func NewHub(opts Options) *Hub {
	rooms := opts.Rooms
	if rooms == nil {
		rooms = NewDirectory(opts.ReclaimEmptyRooms)
	}
	registry := NewRegistry(opts.Logger, opts.Metrics)
	broadcaster := NewBroadcaster(rooms, registry, opts.Metrics)

	return &Hub{
		registry:    registry,
		rooms:       rooms,
		broadcaster: broadcaster,
		router:      NewRouter(rooms, registry, broadcaster, opts.Logger, opts.Metrics),
		log:         opts.Logger,
	}
}

// Accept registers a freshly accepted transport and returns its identity.
func (h *Hub) Accept(conn Conn, codec protocol.Codec) ConnID {
	id := h.registry.Accept(conn, codec)
	h.log.Info().Str("conn", id.String()).Str("remote", conn.RemoteAddr()).Str("codec", codec.Name()).Msg("client connected")
	return id
}

// Receive handles one inbound frame from id. It never fails; bad input is dropped.
func (h *Hub) Receive(id ConnID, data []byte) {
	h.router.Handle(id, data)
}

// Disconnect runs the close path for id: it leaves every room, broadcasting the new
// counts, and forgets the connection. Calls after the first are no-ops.
func (h *Hub) Disconnect(id ConnID) {
	if !h.registry.Remove(id) {
		return
	}
	h.router.Leave(id)
	h.log.Info().Str("conn", id.String()).Msg("client disconnected")
}

// Send delivers f to a single connection.
func (h *Hub) Send(id ConnID, f protocol.Frame) bool {
	return h.registry.Send(id, f)
}

// Members returns a snapshot of the members of room.
func (h *Hub) Members(room string) []Member {
	return h.rooms.Members(room)
}

// ClientCount returns number of connected clients.
func (h *Hub) ClientCount() int {
	return h.registry.Count()
}

// RoomCount returns the number of allocated rooms.
func (h *Hub) RoomCount() int {
	return h.rooms.Rooms()
}
