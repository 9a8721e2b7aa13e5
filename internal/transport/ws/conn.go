// Package ws provides WebSocket transport implementation for the chat server.
package ws

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/omochice/room-chat/internal/transport"
)

const writeWait = 10 * time.Second

// Conn adapts a gorilla websocket connection to chat.Conn.
// Frames are queued by Send and written by a single writeLoop.
type Conn struct {
	ws         *websocket.Conn
	queue      *transport.Queue
	remoteAddr string
}

// NewConn wraps ws with an outbound queue of the given size.
func NewConn(ws *websocket.Conn, remoteAddr string, queueSize int) *Conn {
	return &Conn{ws: ws, queue: transport.NewQueue(queueSize), remoteAddr: remoteAddr}
}

// Send implements chat.Conn.
func (c *Conn) Send(data []byte) error {
	return c.queue.Send(data)
}

// Close implements chat.Conn. Queued frames are flushed before the socket closes.
func (c *Conn) Close() error {
	c.queue.Close()
	return nil
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.remoteAddr
}

// writeLoop drains the queue onto the socket and sends keepalive pings.
// A zero pingInterval disables pings.
func (c *Conn) writeLoop(pingInterval time.Duration) error {
	var tick <-chan time.Time
	if pingInterval > 0 {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	defer c.ws.Close()

	for {
		select {
		case data, ok := <-c.queue.C():
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return nil
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return err
			}
		case <-tick:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}
