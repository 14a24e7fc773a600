package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"

	"github.com/lmittmann/tint"
)

// ChatServer accepts TCP connections and relays line-oriented chat between
// their rooms. An optional WebSocket gateway serves the identical protocol to
// browser clients.
type ChatServer struct {
	hub    *Hub
	logger *slog.Logger

	listener   net.Listener
	wsListener net.Listener
	ws         *http.Server

	// Tracks connection handlers and the gateway so Shutdown can wait for
	// them to finish.
	wg sync.WaitGroup
}

// NewChatServer builds a server logging at the given level.
func NewChatServer(logLevel string) *ChatServer {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level}))
	return NewChatServerWithLogger(logger)
}

// NewChatServerWithLogger builds a server with an injected logger; tests use
// it to keep output quiet.
func NewChatServerWithLogger(logger *slog.Logger) *ChatServer {
	return &ChatServer{
		hub:    newHub(logger),
		logger: logger,
	}
}

// Listen binds the TCP listener on addr and, when wsAddr is non-empty, the
// gateway listener too. It does not accept connections; call Serve.
func (s *ChatServer) Listen(addr, wsAddr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln

	if wsAddr != "" {
		wsLn, err := net.Listen("tcp", wsAddr)
		if err != nil {
			ln.Close()
			return fmt.Errorf("listen %s: %w", wsAddr, err)
		}
		s.wsListener = wsLn
		s.ws = s.newGateway()
	}
	return nil
}

// Addr returns the address of the TCP listener.
func (s *ChatServer) Addr() net.Addr {
	return s.listener.Addr()
}

// WSAddr returns the address of the gateway listener, or nil when the
// gateway is disabled.
func (s *ChatServer) WSAddr() net.Addr {
	if s.wsListener == nil {
		return nil
	}
	return s.wsListener.Addr()
}

// Serve runs the hub and accepts connections until Shutdown closes the
// listener. Each accepted connection gets its own handler goroutine.
func (s *ChatServer) Serve() error {
	go s.hub.run()
	s.logger.Info("listening", "addr", s.listener.Addr().String())

	if s.ws != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.logger.Info("websocket gateway listening", "addr", s.wsListener.Addr().String())
			if err := s.ws.Serve(s.wsListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("websocket gateway failed", "error", err)
			}
		}()
	}

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			newClient(s.hub, newTCPConn(conn), s.logger).run()
		}()
	}
}

// Run is Listen followed by Serve.
func (s *ChatServer) Run(addr, wsAddr string) error {
	if err := s.Listen(addr, wsAddr); err != nil {
		return err
	}
	return s.Serve()
}

// Shutdown stops accepting, delivers the farewell to every connected user,
// and closes their sockets. It is invoked once, from the termination-signal
// path; routing the farewell through the hub keeps it from racing in-flight
// broadcasts.
func (s *ChatServer) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	if s.listener != nil {
		s.listener.Close()
	}

	// Closing the user queues ends every write pump, which closes the
	// sockets and in turn unblocks the read pumps.
	s.hub.stop()

	if s.ws != nil {
		if err := s.ws.Shutdown(ctx); err != nil {
			s.logger.Debug("gateway shutdown", "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("shutdown complete")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
