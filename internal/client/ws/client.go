// Package ws provides a WebSocket client for the chat server.
package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/omochice/room-chat/pkg/protocol"
)

// ErrNotConnected is returned when sending before Connect or after Disconnect.
var ErrNotConnected = errors.New("not connected to server")

// Client is a WebSocket chat client speaking JSON text frames.
type Client struct {
	address  string
	username string
	log      zerolog.Logger
	conn     *websocket.Conn
	frames   chan protocol.Frame
	mu       sync.RWMutex
	done     chan struct{}
	doneOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a WebSocket Client for address, e.g. ws://localhost:8080/ws.
func New(address, username string, log zerolog.Logger) *Client {
	return &Client{
		address:  address,
		username: username,
		log:      log,
		frames:   make(chan protocol.Frame, 16),
		done:     make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection and starts receiving frames.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.address, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.wg.Add(1)
	go c.receive(conn)

	return nil
}

// Disconnect closes the connection and waits for the receiver to stop.
// The Frames channel is closed afterwards.
func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	c.doneOnce.Do(func() { close(c.done) })
	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "")
	}
	c.wg.Wait()
}

// IsConnected returns whether the client is connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

// Join asks to enter room under the client's username.
func (c *Client) Join(room string) error {
	return c.send(protocol.Join{RoomCode: room, Username: c.username})
}

// Chat posts message to room.
func (c *Client) Chat(room, message string) error {
	return c.send(protocol.Chat{RoomCode: room, Message: message, From: c.username})
}

// Frames returns the channel of frames received from the server.
func (c *Client) Frames() <-chan protocol.Frame {
	return c.frames
}

func (c *Client) send(f protocol.Frame) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return ErrNotConnected
	}

	data, err := protocol.JSON.Encode(f)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	if err := conn.Write(context.Background(), websocket.MessageText, data); err != nil {
		return fmt.Errorf("failed to send frame: %w", err)
	}

	return nil
}

func (c *Client) receive(conn *websocket.Conn) {
	defer c.wg.Done()
	defer close(c.frames)

	for {
		_, data, err := conn.Read(context.Background())
		if err != nil {
			select {
			case <-c.done:
			default:
				if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
					c.log.Warn().Err(err).Msg("error reading from server")
				}
			}
			return
		}

		f, err := protocol.JSON.Decode(data)
		if err != nil {
			c.log.Warn().Err(err).Msg("failed to decode frame")
			continue
		}

		select {
		case c.frames <- f:
		case <-c.done:
			return
		}
	}
}
