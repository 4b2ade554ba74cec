package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/harun/parley/internal/observability"
	"github.com/harun/parley/pkg/hub"
)

// Config holds gateway configuration
type Config struct {
	Host   string
	Port   int
	Hub    *hub.Server
	Logger zerolog.Logger
}

// Gateway serves the WebSocket endpoint and feeds upgraded connections
// into the hub. It also exposes the metrics and health endpoints.
type Gateway struct {
	host     string
	port     int
	hub      *hub.Server
	server   *http.Server
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	mu             sync.Mutex
	listener       net.Listener
	activeConns    int
	isShuttingDown bool
	sessions       sync.WaitGroup
}

// NewGateway creates a gateway in front of the given hub
func NewGateway(cfg Config) (*Gateway, error) {
	if cfg.Hub == nil {
		return nil, fmt.Errorf("hub is required")
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}

	return &Gateway{
		host:   cfg.Host,
		port:   cfg.Port,
		hub:    cfg.Hub,
		logger: cfg.Logger.With().Str("component", "gateway").Logger(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for now
			},
		},
	}, nil
}

// Start binds the HTTP listener and begins serving
func (g *Gateway) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", g.handleWebSocket)
	mux.Handle("/metrics", observability.MetricsHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	addr := net.JoinHostPort(g.host, strconv.Itoa(g.port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind gateway: %w", err)
	}

	g.mu.Lock()
	g.listener = listener
	g.mu.Unlock()

	g.server = &http.Server{Handler: mux}

	g.logger.Info().Str("addr", addr).Msg("Gateway listening")

	go func() {
		if err := g.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error().Err(err).Msg("Gateway server error")
		}
	}()

	return nil
}

// Stop refuses new upgrades and shuts the HTTP server down. Websocket
// sessions already handed to the hub are closed by the hub's own stop.
func (g *Gateway) Stop() error {
	g.mu.Lock()
	g.isShuttingDown = true
	g.mu.Unlock()

	g.logger.Info().Msg("Shutting down gateway")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := g.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown gateway: %w", err)
	}

	g.logger.Info().Msg("Gateway stopped")
	return nil
}

// Addr returns the bound listen address, empty before Start
func (g *Gateway) Addr() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.listener == nil {
		return ""
	}
	return g.listener.Addr().String()
}

// handleWebSocket upgrades a connection and runs it through the hub
func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	if g.isShuttingDown {
		g.mu.Unlock()
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}
	g.mu.Unlock()

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	conn := NewConn(ws)

	g.mu.Lock()
	g.activeConns++
	active := g.activeConns
	g.mu.Unlock()
	observability.RecordGatewayConnectionOpened(active)

	g.logger.Info().
		Str("identity", conn.RemoteAddr().String()).
		Int("active", active).
		Msg("Gateway client connected")

	g.sessions.Add(1)
	go func() {
		defer g.sessions.Done()

		// HandleConn blocks for the whole session and closes the conn
		g.hub.HandleConn(conn)

		g.mu.Lock()
		g.activeConns--
		active := g.activeConns
		g.mu.Unlock()
		observability.RecordGatewayConnectionClosed(active)

		g.logger.Info().
			Str("identity", conn.RemoteAddr().String()).
			Int("active", active).
			Msg("Gateway client disconnected")
	}()
}
