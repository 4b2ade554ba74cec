package hub

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultHost is the loopback bind address used when none is configured.
	DefaultHost = "127.0.0.1"
	// DefaultPort is the historical chat port.
	DefaultPort = 8081
	// DefaultPortRetries bounds how many successive ports bind may try.
	DefaultPortRetries = 10
	// DefaultMaxLineBytes bounds one inbound line.
	DefaultMaxLineBytes = 64 * 1024
)

// ServerOptions configures the hub server. Zero fields fall back to the
// package defaults.
type ServerOptions struct {
	Host           string
	Port           int
	MaxPortRetries int
	WriteTimeout   time.Duration
	MaxLineBytes   int
	ShutdownGrace  time.Duration
	MOTD           func() string
	Logger         zerolog.Logger
}

// Server accepts TCP connections and runs one session loop per connection.
type Server struct {
	opts     ServerOptions
	registry *Registry
	history  *History
	caster   *Broadcaster
	logger   zerolog.Logger

	mu       sync.Mutex
	listener net.Listener
	port     int
	started  bool
	stopped  bool
	sessions sync.WaitGroup
}

// NewServer creates a hub server around a fresh registry and history.
func NewServer(opts ServerOptions) (*Server, error) {
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.Port <= 0 {
		opts.Port = DefaultPort
	}
	if opts.MaxPortRetries <= 0 {
		opts.MaxPortRetries = DefaultPortRetries
	}
	if opts.MaxLineBytes <= 0 {
		opts.MaxLineBytes = DefaultMaxLineBytes
	}
	if opts.ShutdownGrace <= 0 {
		opts.ShutdownGrace = 5 * time.Second
	}

	registry := NewRegistry()
	history := NewHistory()
	return &Server{
		opts:     opts,
		registry: registry,
		history:  history,
		caster:   NewBroadcaster(registry, history, opts.Logger),
		logger:   opts.Logger,
	}, nil
}

// Start binds the listener and launches the accept loop. When the named
// port is taken, successive ports are tried before giving up with
// ErrNoAvailablePorts.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("hub server already started")
	}

	listener, port, err := s.bind()
	if err != nil {
		return err
	}
	s.listener = listener
	s.port = port
	s.started = true

	s.logger.Info().
		Str("host", s.opts.Host).
		Int("port", port).
		Msg("Hub listening")

	go s.acceptLoop(listener)
	return nil
}

func (s *Server) bind() (net.Listener, int, error) {
	for i := 0; i <= s.opts.MaxPortRetries; i++ {
		port := s.opts.Port + i
		addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(port))
		listener, err := net.Listen("tcp", addr)
		if err == nil {
			return listener, port, nil
		}
		s.logger.Warn().Err(err).Int("port", port).Msg("Port unavailable")
	}
	return nil, 0, fmt.Errorf("%w: tried %d through %d",
		ErrNoAvailablePorts, s.opts.Port, s.opts.Port+s.opts.MaxPortRetries)
}

func (s *Server) acceptLoop(listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn().Err(err).Msg("Accept failed")
			continue
		}

		s.sessions.Add(1)
		go func() {
			defer s.sessions.Done()
			s.HandleConn(conn)
		}()
	}
}

// HandleConn runs the session loop for one established connection. It is
// exported so alternative transports, such as the WebSocket gateway, can
// feed connections into the same hub.
func (s *Server) HandleConn(conn net.Conn) {
	session := NewSession(SessionOptions{
		Conn:         conn,
		Registry:     s.registry,
		History:      s.history,
		Broadcaster:  s.caster,
		MOTD:         s.opts.MOTD,
		WriteTimeout: s.opts.WriteTimeout,
		MaxLineBytes: s.opts.MaxLineBytes,
		Logger:       s.logger,
	})
	session.Run()
}

// Stop closes the listener, closes every registered connection, and waits
// up to ShutdownGrace for session loops to unwind.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return ErrServerClosed
	}
	s.stopped = true
	listener := s.listener
	s.mu.Unlock()

	s.logger.Info().Msg("Shutting down hub")

	if err := listener.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to close listener")
	}

	for _, w := range s.registry.Close() {
		_ = w.Close()
	}

	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("All sessions drained")
	case <-time.After(s.opts.ShutdownGrace):
		s.logger.Warn().Msg("Shutdown grace elapsed, abandoning remaining sessions")
	}

	s.logger.Info().Msg("Hub stopped")
	return nil
}

// Port returns the bound port, which can differ from the requested port
// when bind retries moved it.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.port
}

// Addr returns the bound listen address, empty before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Registry exposes the session registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// History exposes the history log.
func (s *Server) History() *History {
	return s.history
}

// Broadcaster exposes the broadcast engine, used by the announcement
// scheduler to publish system messages.
func (s *Server) Broadcaster() *Broadcaster {
	return s.caster
}
