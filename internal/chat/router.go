package chat

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/omochice/room-chat/pkg/protocol"
)

// Rooms is the room directory as seen by the router. *Directory implements it.
type Rooms interface {
	MemberSource
	Join(id ConnID, room, name string) int
	Leave(id ConnID, room string) int
	LeaveAll(id ConnID) []RoomCount
	IsMember(id ConnID, room string) bool
	Exists(room string) bool
	Rooms() int
}

// Router dispatches decoded frames from one connection.
type Router struct {
	rooms       Rooms
	registry    *Registry
	broadcaster *Broadcaster
	log         zerolog.Logger
	metrics     *Metrics
}

// NewRouter wires a router over the given directory, registry and broadcaster.
func NewRouter(rooms Rooms, registry *Registry, broadcaster *Broadcaster, log zerolog.Logger, metrics *Metrics) *Router {
	return &Router{
		rooms:       rooms,
		registry:    registry,
		broadcaster: broadcaster,
		log:         log,
		metrics:     metrics,
	}
}

// Handle decodes data with the connection's codec and applies it.
// Malformed or unexpected frames are logged and dropped.
func (r *Router) Handle(id ConnID, data []byte) {
	c, ok := r.registry.Get(id)
	if !ok {
		return
	}

	f, err := c.Codec.Decode(data)
	if err != nil {
		r.discard(id, reason(err), err)
		return
	}
	r.Dispatch(id, f)
}

// Dispatch applies an already decoded frame.
func (r *Router) Dispatch(id ConnID, f protocol.Frame) {
	switch v := f.(type) {
	case protocol.Join:
		if err := v.Validate(); err != nil {
			r.discard(id, "invalid", err)
			return
		}
		r.metrics.received(string(protocol.TypeJoin))
		r.join(id, v)
	case protocol.Chat:
		r.metrics.received(string(protocol.TypeChat))
		r.chat(id, v)
	default:
		r.log.Warn().Str("conn", id.String()).Stringer("type", f.FrameType()).Msg("outbound-only frame from client, discarding")
		r.metrics.dropped("unexpected")
	}
}

func (r *Router) join(id ConnID, j protocol.Join) {
	name := r.registry.SetName(id, j.Username)
	count := r.rooms.Join(id, j.RoomCode, name)
	r.metrics.setRooms(r.rooms.Rooms())

	r.log.Info().Str("conn", id.String()).Str("room", j.RoomCode).Str("name", name).Int("count", count).Msg("joined room")
	r.broadcaster.Broadcast(j.RoomCode, protocol.CountUpdate{Count: count})
}

func (r *Router) chat(id ConnID, c protocol.Chat) {
	if err := r.authorize(id, c.RoomCode); err != nil {
		r.log.Info().Err(err).Str("conn", id.String()).Str("room", c.RoomCode).Msg("chat rejected")
		r.registry.Send(id, protocol.Error{Error: err.Error()})
		return
	}

	from := c.From
	if from == "" {
		from = r.registry.Name(id)
	}
	n := r.broadcaster.BroadcastExcept(c.RoomCode, protocol.MessageRelay{From: from, Message: c.Message}, id)
	r.log.Debug().Str("conn", id.String()).Str("room", c.RoomCode).Int("recipients", n).Msg("chat relayed")
}

func (r *Router) authorize(id ConnID, room string) error {
	if !r.rooms.Exists(room) {
		return ErrRoomNotFound
	}
	if !r.rooms.IsMember(id, room) {
		return ErrNotAMember
	}
	return nil
}

// Leave removes id from every room it joined and updates each room's count.
func (r *Router) Leave(id ConnID) {
	left := r.rooms.LeaveAll(id)
	if len(left) > 0 {
		r.metrics.setRooms(r.rooms.Rooms())
	}
	for _, rc := range left {
		r.log.Info().Str("conn", id.String()).Str("room", rc.Room).Int("count", rc.Count).Msg("left room")
		r.broadcaster.Broadcast(rc.Room, protocol.CountUpdate{Count: rc.Count})
	}
}

func (r *Router) discard(id ConnID, why string, err error) {
	r.log.Warn().Err(err).Str("conn", id.String()).Str("reason", why).Msg("discarding frame")
	r.metrics.dropped(why)
}

func reason(err error) string {
	switch {
	case errors.Is(err, protocol.ErrUnknownType):
		return "unknown_type"
	case errors.Is(err, protocol.ErrMissingType):
		return "missing_type"
	default:
		return "malformed"
	}
}
