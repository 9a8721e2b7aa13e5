package chat_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/omochice/room-chat/internal/chat"
	"github.com/omochice/room-chat/pkg/protocol"
)

// mockConn is a mock implementation of chat.Conn for testing.
type mockConn struct {
	writtenMu  sync.Mutex
	written    [][]byte
	sendErr    error
	closed     bool
	remoteAddr string
}

func newMockConn(addr string) *mockConn {
	return &mockConn{remoteAddr: addr}
}

func (m *mockConn) Send(data []byte) error {
	m.writtenMu.Lock()
	defer m.writtenMu.Unlock()
	if m.closed {
		return errors.New("closed")
	}
	if m.sendErr != nil {
		return m.sendErr
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	m.written = append(m.written, copied)
	return nil
}

func (m *mockConn) Close() error {
	m.writtenMu.Lock()
	defer m.writtenMu.Unlock()
	m.closed = true
	return nil
}

func (m *mockConn) RemoteAddr() string {
	return m.remoteAddr
}

// frames decodes everything written so far.
func (m *mockConn) frames(t *testing.T) []protocol.Frame {
	t.Helper()
	m.writtenMu.Lock()
	defer m.writtenMu.Unlock()

	out := make([]protocol.Frame, 0, len(m.written))
	for _, data := range m.written {
		f, err := protocol.JSON.Decode(data)
		if err != nil {
			t.Fatalf("server wrote undecodable frame %q: %v", data, err)
		}
		out = append(out, f)
	}
	return out
}

// reset drops everything written so far.
func (m *mockConn) reset() {
	m.writtenMu.Lock()
	defer m.writtenMu.Unlock()
	m.written = nil
}

// Compile-time check that mockConn implements chat.Conn
var _ chat.Conn = (*mockConn)(nil)
