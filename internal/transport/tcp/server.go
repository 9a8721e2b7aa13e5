package tcp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/rs/zerolog"

	"github.com/omochice/room-chat/internal/chat"
)

// Options tunes the stream listener.
type Options struct {
	Logger         zerolog.Logger
	AllowedOrigins []string
	SendBuffer     int
	MaxMessageSize int
}

// Server handles TCP connections and delegates to Hub.
type Server struct {
	address  string
	listener net.Listener
	hub      *chat.Hub
	opts     Options
	quit     chan struct{}
	wg       sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// New creates a stream server that uses the provided Hub.
func New(address string, hub *chat.Hub, opts Options) *Server {
	return &Server{
		address: address,
		hub:     hub,
		opts:    opts,
		quit:    make(chan struct{}),
		conns:   make(map[net.Conn]struct{}),
	}
}

// Start listens and serves until Stop is called.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Listen binds the listening socket.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start TCP server: %w", err)
	}
	s.listener = listener
	s.opts.Logger.Info().Str("addr", listener.Addr().String()).Msg("stream server started (TCP and WebSocket)")
	return nil
}

// Serve accepts connections on the bound socket.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.opts.Logger.Warn().Err(err).Msg("failed to accept TCP connection")
			continue
		}

		s.track(conn)
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// Stop stops the listener, closes every connection and waits for handlers to return.
func (s *Server) Stop() {
	close(s.quit)
	if s.listener != nil {
		s.listener.Close()
	}

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// handleConnection determines whether the connection is HTTP (WebSocket) or raw TCP,
// then runs it until the peer goes away.
func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer s.untrack(conn)

	reader := bufio.NewReader(conn)
	isHTTP, err := detectHTTP(reader)
	if err != nil {
		if !errors.Is(err, io.EOF) {
			s.opts.Logger.Debug().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("failed to peek connection")
		}
		conn.Close()
		return
	}

	var f framer
	if isHTTP {
		bufConn := &bufferedConn{Conn: conn, reader: reader}
		if _, err := s.upgrader().Upgrade(bufConn); err != nil {
			s.opts.Logger.Warn().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("failed to upgrade connection")
			conn.Close()
			return
		}
		f = &wsFramer{r: reader, w: conn, limit: int64(s.opts.MaxMessageSize)}
	} else {
		f = &rawFramer{r: reader, w: conn, limit: s.opts.MaxMessageSize}
	}

	c := newConn(conn, f, s.opts.SendBuffer)
	id := s.hub.Accept(c, f.Codec())

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		if err := c.writeLoop(); err != nil {
			s.opts.Logger.Debug().Err(err).Str("conn", id.String()).Msg("failed to send message to TCP client")
		}
	}()

	s.readLoop(id, f)

	s.hub.Disconnect(id)
	c.Close()
	<-writerDone
}

func (s *Server) readLoop(id chat.ConnID, f framer) {
	for {
		data, err := f.ReadFrame()
		if err != nil {
			var closed wsutil.ClosedError
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && !errors.As(err, &closed) {
				s.opts.Logger.Warn().Err(err).Str("conn", id.String()).Msg("error reading from client")
			}
			return
		}
		s.hub.Receive(id, data)
	}
}

func (s *Server) upgrader() ws.Upgrader {
	return ws.Upgrader{
		OnHeader: func(key, value []byte) error {
			if !strings.EqualFold(string(key), "Origin") || originAllowed(s.opts.AllowedOrigins, string(value)) {
				return nil
			}
			return ws.RejectConnectionError(ws.RejectionStatus(403))
		},
	}
}

func originAllowed(allowed []string, origin string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}
