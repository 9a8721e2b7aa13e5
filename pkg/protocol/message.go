// Package protocol defines the frames exchanged between room-chat clients and the server
// and the codecs that put them on the wire.
package protocol

import (
	"errors"
	"fmt"
)

// Type is the discriminator carried by every frame.
type Type string

const (
	TypeJoin         Type = "join"
	TypeChat         Type = "chat"
	TypeCountUpdate  Type = "cntPing"
	TypeMessageRelay Type = "messagePing"
	TypeError        Type = "error"
)

// String returns the wire name of the type.
func (t Type) String() string {
	return string(t)
}

// Inbound reports whether clients are allowed to send frames of this type.
func (t Type) Inbound() bool {
	return t == TypeJoin || t == TypeChat
}

var (
	// ErrMalformed is returned when a frame cannot be parsed at all.
	ErrMalformed = errors.New("malformed frame")
	// ErrMissingType is returned when a frame parses but carries no type.
	ErrMissingType = errors.New("frame type missing")
	// ErrUnknownType is returned for a type outside the frame union.
	ErrUnknownType = errors.New("unknown frame type")
	// ErrInvalid is returned by Validate for frames with unusable payloads.
	ErrInvalid = errors.New("invalid frame")
)

// Frame is one of Join, Chat, CountUpdate, MessageRelay or Error.
type Frame interface {
	FrameType() Type
}

// Join asks the server to add the connection to a room.
type Join struct {
	RoomCode string `json:"roomCode"`
	Username string `json:"username"`
}

// Chat is a message sent by a room member.
type Chat struct {
	RoomCode string `json:"roomCode"`
	Message  string `json:"message"`
	From     string `json:"from"`
}

// CountUpdate reports the current member count of a room.
type CountUpdate struct {
	Count int `json:"count"`
}

// MessageRelay delivers a chat message to the other members of a room.
type MessageRelay struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

// Error reports a rejected request back to the connection that sent it.
type Error struct {
	Error string `json:"error"`
}

func (Join) FrameType() Type         { return TypeJoin }
func (Chat) FrameType() Type         { return TypeChat }
func (CountUpdate) FrameType() Type  { return TypeCountUpdate }
func (MessageRelay) FrameType() Type { return TypeMessageRelay }
func (Error) FrameType() Type        { return TypeError }

// Validate checks the payload of a join frame.
func (j Join) Validate() error {
	if j.RoomCode == "" {
		return fmt.Errorf("%w: join without room code", ErrInvalid)
	}
	return nil
}

// Codec turns frames into bytes and back.
type Codec interface {
	Name() string
	Encode(f Frame) ([]byte, error)
	Decode(data []byte) (Frame, error)
}

// newFrame returns an empty payload value for t, or nil if t is not part of the union.
func newFrame(t Type) Frame {
	switch t {
	case TypeJoin:
		return &Join{}
	case TypeChat:
		return &Chat{}
	case TypeCountUpdate:
		return &CountUpdate{}
	case TypeMessageRelay:
		return &MessageRelay{}
	case TypeError:
		return &Error{}
	default:
		return nil
	}
}

// deref turns the pointer produced by newFrame back into a value frame.
func deref(f Frame) Frame {
	switch v := f.(type) {
	case *Join:
		return *v
	case *Chat:
		return *v
	case *CountUpdate:
		return *v
	case *MessageRelay:
		return *v
	case *Error:
		return *v
	default:
		return f
	}
}
