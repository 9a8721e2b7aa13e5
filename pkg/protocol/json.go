package protocol

import (
	"encoding/json"
	"fmt"
)

// JSON is the codec used by WebSocket clients.
var JSON Codec = jsonCodec{}

type envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

// Encode writes f as {"type": ..., "payload": {...}}.
func (jsonCodec) Encode(f Frame) ([]byte, error) {
	if f == nil {
		return nil, fmt.Errorf("failed to encode frame: nil frame")
	}
	payload, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", f.FrameType(), err)
	}
	data, err := json.Marshal(envelope{Type: f.FrameType(), Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s frame: %w", f.FrameType(), err)
	}
	return data, nil
}

// Decode parses an envelope and its payload into a value frame.
func (jsonCodec) Decode(data []byte) (Frame, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return nil, ErrMissingType
	}
	f := newFrame(env.Type)
	if f == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	if len(env.Payload) > 0 && string(env.Payload) != "null" {
		if err := json.Unmarshal(env.Payload, f); err != nil {
			return nil, fmt.Errorf("%w: %s payload: %v", ErrMalformed, env.Type, err)
		}
	}
	return deref(f), nil
}
