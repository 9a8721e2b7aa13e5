// Package tcp provides the stream listener: one TCP port that serves raw TCP clients
// speaking length-delimited binary frames and WebSocket clients speaking JSON.
package tcp

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/omochice/room-chat/internal/transport"
	"github.com/omochice/room-chat/pkg/protocol"
)

const writeWait = 10 * time.Second

// ErrMessageTooLarge is returned when a WebSocket message, summed over its
// fragments, exceeds the read limit.
var ErrMessageTooLarge = errors.New("websocket message too large")

// framer reads and writes whole frames on a stream.
type framer interface {
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte) error
	Codec() protocol.Codec
}

// Conn adapts a stream connection to chat.Conn.
type Conn struct {
	conn      net.Conn
	framer    framer
	queue     *transport.Queue
	writeWait time.Duration
}

func newConn(conn net.Conn, f framer, queueSize int) *Conn {
	return &Conn{conn: conn, framer: f, queue: transport.NewQueue(queueSize), writeWait: writeWait}
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
	return c.conn.RemoteAddr().String()
}

func (c *Conn) writeLoop() error {
	defer c.conn.Close()
	for data := range c.queue.C() {
		c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
		if err := c.framer.WriteFrame(data); err != nil {
			return err
		}
	}
	return nil
}

// rawFramer speaks varint-length-delimited binary frames.
type rawFramer struct {
	r     *bufio.Reader
	w     io.Writer
	limit int
}

func (f *rawFramer) ReadFrame() ([]byte, error) {
	return protocol.ReadDelimited(f.r, f.limit)
}

func (f *rawFramer) WriteFrame(data []byte) error {
	_, err := f.w.Write(protocol.AppendDelimited(nil, data))
	return err
}

func (f *rawFramer) Codec() protocol.Codec { return protocol.Binary }

// wsFramer speaks server-side WebSocket with gobwas/ws. Control replies and data
// frames share one write lock so they never interleave on the wire.
type wsFramer struct {
	r     io.Reader
	w     io.Writer
	limit int64
	mu    sync.Mutex
}

func (f *wsFramer) ReadFrame() ([]byte, error) {
	rd := &wsutil.Reader{
		Source:         f.r,
		State:          ws.StateServerSide,
		CheckUTF8:      true,
		MaxFrameSize:   f.limit,
		OnIntermediate: f.handleControl,
	}
	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			return nil, err
		}
		if hdr.OpCode.IsControl() {
			if err := f.handleControl(hdr, rd); err != nil {
				return nil, err
			}
			continue
		}
		if hdr.OpCode&(ws.OpText|ws.OpBinary) == 0 {
			if err := rd.Discard(); err != nil {
				return nil, err
			}
			continue
		}
		if f.limit <= 0 {
			return io.ReadAll(rd)
		}
		// MaxFrameSize bounds single frames only; fragments are summed here.
		data, err := io.ReadAll(io.LimitReader(rd, f.limit+1))
		if err != nil {
			return nil, err
		}
		if int64(len(data)) > f.limit {
			return nil, ErrMessageTooLarge
		}
		return data, nil
	}
}

func (f *wsFramer) handleControl(hdr ws.Header, r io.Reader) error {
	var reply bytes.Buffer
	// The wsutil.Reader has already unmasked the payload.
	h := wsutil.ControlHandler{Src: r, Dst: &reply, State: ws.StateServerSide, DisableSrcCiphering: true}
	err := h.Handle(hdr)
	if reply.Len() > 0 {
		f.mu.Lock()
		_, werr := f.w.Write(reply.Bytes())
		f.mu.Unlock()
		if err == nil {
			err = werr
		}
	}
	return err
}

func (f *wsFramer) WriteFrame(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return wsutil.WriteServerMessage(f.w, ws.OpText, data)
}

func (f *wsFramer) Codec() protocol.Codec { return protocol.JSON }
