package tcp

import (
	"bufio"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConn_WriteLoopTimesOutOnStalledPeer(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	c := newConn(server, &rawFramer{r: bufio.NewReader(server), w: server, limit: 4096}, 4)
	c.writeWait = 50 * time.Millisecond

	done := make(chan error, 1)
	go func() { done <- c.writeLoop() }()

	// client never reads, so the write can only end by deadline
	require.NoError(t, c.Send([]byte("frame")))

	select {
	case err := <-done:
		var ne net.Error
		require.True(t, errors.As(err, &ne), "got %v", err)
		assert.True(t, ne.Timeout())
	case <-time.After(2 * time.Second):
		t.Fatal("writeLoop blocked on a peer that never reads")
	}
}

func TestConn_WriteLoopFlushesThenCloses(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	c := newConn(server, &rawFramer{r: bufio.NewReader(server), w: server, limit: 4096}, 4)
	done := make(chan error, 1)
	go func() { done <- c.writeLoop() }()

	require.NoError(t, c.Send([]byte("frame")))
	c.Close()

	r := bufio.NewReader(client)
	n, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(len("frame")), n)
	buf := make([]byte, len("frame"))
	_, err = r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "frame", string(buf))

	assert.NoError(t, <-done)
}
