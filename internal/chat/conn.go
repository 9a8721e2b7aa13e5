// Package chat implements the room registry and broadcast router shared by all transports.
package chat

import (
	"errors"

	"github.com/google/uuid"
)

// Conn abstracts the write side of one accepted transport session.
// Transports own the read side and feed inbound bytes to Hub.Receive.
type Conn interface {
	// Send queues one encoded frame for delivery.
	// It returns an error if the transport is closed or cannot accept more data.
	Send(data []byte) error

	// Close closes the connection.
	Close() error

	// RemoteAddr returns the remote address for logging.
	RemoteAddr() string
}

// ConnID identifies a connection for its whole lifetime.
type ConnID uuid.UUID

// NewConnID returns a fresh random identity.
func NewConnID() ConnID {
	return ConnID(uuid.New())
}

func (id ConnID) String() string {
	return uuid.UUID(id).String()
}

var (
	// ErrRoomNotFound is reported to a client that chats in a room nobody has joined.
	ErrRoomNotFound = errors.New("Room does not exist")
	// ErrNotAMember is reported to a client that chats in a room it has not joined.
	ErrNotAMember = errors.New("You are not in this room")
)
