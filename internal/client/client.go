// Package client defines the common interface for chat clients.
package client

import (
	"context"

	"github.com/omochice/room-chat/pkg/protocol"
)

// Client defines the interface for chat clients.
// Both the WebSocket and the raw TCP implementations satisfy this interface.
type Client interface {
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
	Join(room string) error
	Chat(room, message string) error
	Frames() <-chan protocol.Frame
}
