// Package server runs the chat hub behind its network listeners.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/omochice/room-chat/internal/chat"
	"github.com/omochice/room-chat/internal/config"
	"github.com/omochice/room-chat/internal/transport/tcp"
	"github.com/omochice/room-chat/internal/transport/ws"
)

// Server owns the hub, the HTTP listener and, when tcp_addr is set, the stream listener.
type Server struct {
	cfg      config.Config
	log      zerolog.Logger
	hub      *chat.Hub
	registry *prometheus.Registry

	ws       *ws.Handler
	http     *http.Server
	listener net.Listener
	stream   *tcp.Server

	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a Server from cfg. Nothing listens until Listen or Start.
func New(cfg config.Config, log zerolog.Logger) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hub := chat.NewHub(chat.Options{
		Logger:            log,
		Metrics:           chat.NewMetrics(registry),
		ReclaimEmptyRooms: cfg.ReclaimEmptyRooms,
	})

	wsHandler := ws.NewHandler(hub, ws.Options{
		Logger:         log.With().Str("transport", "websocket").Logger(),
		AllowedOrigins: cfg.AllowedOrigins,
		SendBuffer:     cfg.SendBuffer,
		MaxMessageSize: int64(cfg.MaxMessageSize),
		PingInterval:   cfg.PingInterval.Duration,
	})

	s := &Server{
		cfg:      cfg,
		log:      log,
		hub:      hub,
		registry: registry,
		ws:       wsHandler,
		quit:     make(chan struct{}),
	}
	s.http = &http.Server{
		Handler: NewHandler(hub, wsHandler, cfg.WSPath, registry, cfg.AllowedOrigins),
	}
	if cfg.TCPAddr != "" {
		s.stream = tcp.New(cfg.TCPAddr, hub, tcp.Options{
			Logger:         log.With().Str("transport", "stream").Logger(),
			AllowedOrigins: cfg.AllowedOrigins,
			SendBuffer:     cfg.SendBuffer,
			MaxMessageSize: cfg.MaxMessageSize,
		})
	}
	return s
}

// Hub returns the hub shared by every transport.
func (s *Server) Hub() *chat.Hub {
	return s.hub
}

// Start binds the listeners and serves until Stop is called or a listener fails.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Listen binds the HTTP listener and, if configured, the stream listener.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	s.listener = listener
	s.log.Info().Str("addr", listener.Addr().String()).Str("ws_path", s.cfg.WSPath).Msg("HTTP server started")

	if s.stream != nil {
		if err := s.stream.Listen(); err != nil {
			listener.Close()
			return err
		}
	}
	return nil
}

// Serve runs the bound listeners. It returns nil after Stop.
func (s *Server) Serve() error {
	errChan := make(chan error, 2)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.http.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	if s.stream != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.stream.Serve(); err != nil {
				errChan <- fmt.Errorf("stream server: %w", err)
			}
		}()
	}

	select {
	case err := <-errChan:
		return err
	case <-s.quit:
		return nil
	}
}

// Stop shuts every listener down and disconnects all clients. In-flight HTTP requests
// get until ctx is done to finish.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		close(s.quit)

		if shutdownErr := s.http.Shutdown(ctx); shutdownErr != nil {
			err = fmt.Errorf("shutdown HTTP server: %w", shutdownErr)
		}
		s.ws.Close()
		if s.stream != nil {
			s.stream.Stop()
		}
		s.wg.Wait()
		s.log.Info().Msg("server stopped")
	})
	return err
}

// Addr returns the HTTP listening address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// StreamAddr returns the stream listening address, or "" when disabled.
func (s *Server) StreamAddr() string {
	if s.stream != nil {
		return s.stream.Addr()
	}
	return ""
}
