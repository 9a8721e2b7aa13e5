package chat

import "github.com/omochice/room-chat/pkg/protocol"

// MemberSource supplies point-in-time member snapshots.
type MemberSource interface {
	Members(room string) []Member
}

// Sender delivers a frame to one connection.
type Sender interface {
	Send(id ConnID, f protocol.Frame) bool
}

// Broadcaster fans frames out to the members of a room.
type Broadcaster struct {
	members MemberSource
	sender  Sender
	metrics *Metrics
}

// NewBroadcaster creates a Broadcaster reading membership from members and
// delivering through sender.
func NewBroadcaster(members MemberSource, sender Sender, metrics *Metrics) *Broadcaster {
	return &Broadcaster{members: members, sender: sender, metrics: metrics}
}

// Broadcast sends f to every member of room and returns how many accepted it.
func (b *Broadcaster) Broadcast(room string, f protocol.Frame) int {
	return b.send(room, f, nil)
}

// BroadcastExcept sends f to every member of room other than exclude.
func (b *Broadcaster) BroadcastExcept(room string, f protocol.Frame, exclude ConnID) int {
	return b.send(room, f, &exclude)
}

// send works on a snapshot, so no directory lock is held while transports are written.
func (b *Broadcaster) send(room string, f protocol.Frame, exclude *ConnID) int {
	sent := 0
	for _, m := range b.members.Members(room) {
		if exclude != nil && m.ID == *exclude {
			continue
		}
		if b.sender.Send(m.ID, f) {
			sent++
		}
	}
	b.metrics.delivered(sent)
	return sent
}
