package tcp_test

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/omochice/room-chat/internal/client/tcp"
	"github.com/omochice/room-chat/pkg/protocol"
)

// startEchoServer echoes every length-delimited frame back to its sender.
func startEchoServer(t *testing.T) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to start mock server: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				r := bufio.NewReader(c)
				for {
					body, err := protocol.ReadDelimited(r, 4096)
					if err != nil {
						return
					}
					c.Write(protocol.AppendDelimited(nil, body))
				}
			}(conn)
		}
	}()

	return listener.Addr().String()
}

func next(t *testing.T, c *tcp.Client) protocol.Frame {
	t.Helper()
	select {
	case f := <-c.Frames():
		return f
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for frame")
		return nil
	}
}

func TestClient_Connect(t *testing.T) {
	client := tcp.New(startEchoServer(t), "testuser", zerolog.Nop())

	if client.IsConnected() {
		t.Error("Client should not be connected initially")
	}

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}

	if !client.IsConnected() {
		t.Error("Client should be connected after Connect()")
	}

	client.Disconnect()

	if client.IsConnected() {
		t.Error("Client should not be connected after Disconnect()")
	}
}

func TestClient_JoinAndChat(t *testing.T) {
	client := tcp.New(startEchoServer(t), "testuser", zerolog.Nop())
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer client.Disconnect()

	if err := client.Join("r1"); err != nil {
		t.Fatalf("Failed to join: %v", err)
	}
	if err := client.Chat("r1", "hello"); err != nil {
		t.Fatalf("Failed to chat: %v", err)
	}

	if got, want := next(t, client), (protocol.Join{RoomCode: "r1", Username: "testuser"}); got != want {
		t.Errorf("got %#v, want %#v", got, want)
	}
	if got, want := next(t, client), (protocol.Chat{RoomCode: "r1", Message: "hello", From: "testuser"}); got != want {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestClient_SendWithoutConnection(t *testing.T) {
	client := tcp.New("localhost:0", "testuser", zerolog.Nop())

	if err := client.Chat("r1", "hello"); err != tcp.ErrNotConnected {
		t.Errorf("Chat() error = %v, want %v", err, tcp.ErrNotConnected)
	}
}

func TestClient_ServerCloses(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	defer listener.Close()
	go func() {
		conn, err := listener.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	client := tcp.New(listener.Addr().String(), "testuser", zerolog.Nop())
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer client.Disconnect()

	select {
	case _, ok := <-client.Frames():
		if ok {
			t.Error("expected Frames() to be closed when the server hangs up")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for Frames() to close")
	}
}
