// Package tcp provides a raw TCP client for the chat server's stream listener.
// Frames travel in the length-delimited binary encoding.
package tcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/omochice/room-chat/pkg/protocol"
)

// ErrNotConnected is returned when sending before Connect or after Disconnect.
var ErrNotConnected = errors.New("not connected to server")

const maxFrameSize = 64 * 1024

// Client is a raw TCP chat client.
type Client struct {
	address  string
	username string
	log      zerolog.Logger
	conn     net.Conn
	frames   chan protocol.Frame
	mu       sync.RWMutex
	writeMu  sync.Mutex
	done     chan struct{}
	doneOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a TCP Client for address, e.g. localhost:9090.
func New(address, username string, log zerolog.Logger) *Client {
	return &Client{
		address:  address,
		username: username,
		log:      log,
		frames:   make(chan protocol.Frame, 16),
		done:     make(chan struct{}),
	}
}

// Connect dials the server and starts receiving frames.
func (c *Client) Connect(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.address)
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
		conn.Close()
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

	body, err := protocol.Binary.Encode(f)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := conn.Write(protocol.AppendDelimited(nil, body)); err != nil {
		return fmt.Errorf("failed to send frame: %w", err)
	}

	return nil
}

func (c *Client) receive(conn net.Conn) {
	defer c.wg.Done()
	defer close(c.frames)

	r := bufio.NewReader(conn)
	for {
		body, err := protocol.ReadDelimited(r, maxFrameSize)
		if err != nil {
			select {
			case <-c.done:
			default:
				if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
					c.log.Warn().Err(err).Msg("error reading from server")
				}
			}
			return
		}

		f, err := protocol.Binary.Decode(body)
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
