package client_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omochice/room-chat/internal/client"
	"github.com/omochice/room-chat/internal/client/tcp"
	"github.com/omochice/room-chat/internal/client/ws"
	"github.com/omochice/room-chat/internal/config"
	"github.com/omochice/room-chat/internal/server"
	"github.com/omochice/room-chat/pkg/protocol"
)

var (
	_ client.Client = (*ws.Client)(nil)
	_ client.Client = (*tcp.Client)(nil)
)

func startServer(t *testing.T) *server.Server {
	t.Helper()
	cfg := config.Default()
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.TCPAddr = "127.0.0.1:0"

	srv := server.New(cfg, zerolog.Nop())
	require.NoError(t, srv.Listen())
	go srv.Serve()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Stop(ctx)
	})
	return srv
}

func connect(t *testing.T, c client.Client) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	t.Cleanup(c.Disconnect)
}

func next(t *testing.T, c client.Client) protocol.Frame {
	t.Helper()
	select {
	case f := <-c.Frames():
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for frame")
		return nil
	}
}

func TestIntegration_ClientsAcrossTransports(t *testing.T) {
	srv := startServer(t)

	alice := ws.New("ws://"+srv.Addr()+"/ws", "alice", zerolog.Nop())
	bob := tcp.New(srv.StreamAddr(), "bob", zerolog.Nop())
	connect(t, alice)
	connect(t, bob)

	require.NoError(t, alice.Join("r1"))
	assert.Equal(t, protocol.CountUpdate{Count: 1}, next(t, alice))

	require.NoError(t, bob.Join("r1"))
	assert.Equal(t, protocol.CountUpdate{Count: 2}, next(t, alice))
	assert.Equal(t, protocol.CountUpdate{Count: 2}, next(t, bob))

	require.NoError(t, alice.Chat("r1", "hi bob"))
	assert.Equal(t, protocol.MessageRelay{From: "alice", Message: "hi bob"}, next(t, bob))

	require.NoError(t, bob.Chat("r2", "anyone?"))
	assert.Equal(t, protocol.Error{Error: "Room does not exist"}, next(t, bob))

	bob.Disconnect()
	assert.Equal(t, protocol.CountUpdate{Count: 1}, next(t, alice))
}
