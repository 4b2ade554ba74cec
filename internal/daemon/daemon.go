// Package daemon assembles the services behind the serve command: the
// chat hub, the optional WebSocket gateway, and the optional bulletin
// board with its announcement scheduler.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/harun/parley/internal/config"
	"github.com/harun/parley/internal/logger"
	"github.com/harun/parley/internal/observability"
	"github.com/harun/parley/pkg/bulletin"
	"github.com/harun/parley/pkg/gateway"
	"github.com/harun/parley/pkg/hub"
	"github.com/harun/parley/pkg/protocol"
)

// Daemon runs the parley services as one unit.
type Daemon struct {
	config *config.Config
	logger *logger.Logger

	hub       *hub.Server
	gateway   *gateway.Gateway
	board     *bulletin.Board
	announcer *bulletin.Announcer

	lifecycle *LifecycleManager

	startTime time.Time
	running   bool
	mu        sync.RWMutex
}

// New creates a daemon instance with every configured service
// initialized but not yet started.
func New(cfg *config.Config, log *logger.Logger) (*Daemon, error) {
	observability.EnsureRegistered()

	d := &Daemon{
		config: cfg,
		logger: log,
	}

	if err := d.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	d.lifecycle = NewLifecycleManager(d)

	return d, nil
}

// initializeServices builds the services in dependency order: the hub
// first, then the transports and publishers that feed it.
func (d *Daemon) initializeServices() error {
	hubServer, err := hub.NewServer(hub.ServerOptions{
		Host:           d.config.Server.Host,
		Port:           d.config.Server.Port,
		MaxPortRetries: d.config.Server.MaxPortRetries,
		WriteTimeout:   d.config.Server.WriteTimeout(),
		MaxLineBytes:   d.config.Server.MaxLineBytes,
		ShutdownGrace:  d.config.Server.ShutdownGrace(),
		MOTD:           d.motd,
		Logger:         d.logger.GetZerolog(),
	})
	if err != nil {
		return fmt.Errorf("failed to create hub server: %w", err)
	}
	d.hub = hubServer
	d.logger.Info().Msg("Hub initialized")

	if d.config.Gateway.Enabled {
		gw, err := gateway.NewGateway(gateway.Config{
			Host:   d.config.Gateway.Host,
			Port:   d.config.Gateway.Port,
			Hub:    d.hub,
			Logger: d.logger.GetZerolog(),
		})
		if err != nil {
			return fmt.Errorf("failed to create gateway: %w", err)
		}
		d.gateway = gw
		d.logger.Info().Int("port", d.config.Gateway.Port).Msg("Gateway initialized")
	}

	if d.config.Bulletin.Enabled && d.config.Bulletin.File != "" {
		announcer, err := bulletin.NewAnnouncer(bulletin.AnnouncerOptions{
			Publish: d.publishAnnouncement,
			Logger:  d.logger.GetZerolog(),
		})
		if err != nil {
			return fmt.Errorf("failed to create announcer: %w", err)
		}
		d.announcer = announcer

		board, err := bulletin.NewBoard(bulletin.BoardOptions{
			Path:     d.config.Bulletin.File,
			OnReload: announcer.Apply,
			Logger:   d.logger.GetZerolog(),
		})
		if err != nil {
			return fmt.Errorf("failed to create bulletin board: %w", err)
		}
		d.board = board
		d.logger.Info().Str("file", d.config.Bulletin.File).Msg("Bulletin board initialized")
	}

	return nil
}

// motd is handed to the hub so every reload of the bulletin file is
// visible to the next joiner without restarting anything.
func (d *Daemon) motd() string {
	if d.board == nil {
		return ""
	}
	return d.board.MOTD()
}

// publishAnnouncement broadcasts a scheduled announcement to the whole
// room. The empty origin means no session is the sender, so everyone
// receives it and it lands in history for late joiners.
func (d *Daemon) publishAnnouncement(body string) {
	d.hub.Broadcaster().Broadcast("", protocol.NewMessage("server", body))
}

// Start starts every service. The hub and gateway must bind; the
// bulletin board is best-effort because chat works without it.
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	d.logger.Info().Msg("Starting parley daemon")

	if err := d.lifecycle.Start(); err != nil {
		return fmt.Errorf("failed to start lifecycle manager: %w", err)
	}

	if err := d.hub.Start(); err != nil {
		return fmt.Errorf("failed to start hub: %w", err)
	}
	d.logger.Info().Int("port", d.hub.Port()).Msg("Hub started")

	if d.gateway != nil {
		if err := d.gateway.Start(); err != nil {
			return fmt.Errorf("failed to start gateway: %w", err)
		}
		d.logger.Info().Str("addr", d.gateway.Addr()).Msg("Gateway started")
	}

	if d.board != nil {
		if err := d.board.Start(); err != nil {
			d.logger.Warn().Err(err).Msg("Failed to start bulletin board")
		} else {
			d.announcer.Start()
			d.logger.Info().Msg("Bulletin board started")
		}
	}

	d.logger.Info().Msg("Daemon started successfully")

	return nil
}

// Stop stops the services in reverse order: publishers first so nothing
// new enters the room, then the transports.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is not running")
	}
	d.running = false
	d.mu.Unlock()

	d.logger.Info().Msg("Stopping parley daemon")

	if d.announcer != nil {
		d.announcer.Stop()
	}
	if d.board != nil {
		if err := d.board.Stop(); err != nil {
			d.logger.Error().Err(err).Msg("Failed to stop bulletin board")
		}
	}

	if d.gateway != nil {
		if err := d.gateway.Stop(); err != nil {
			d.logger.Error().Err(err).Msg("Failed to stop gateway")
		}
	}

	if err := d.hub.Stop(); err != nil && !errors.Is(err, hub.ErrServerClosed) {
		d.logger.Error().Err(err).Msg("Failed to stop hub")
	}

	if err := d.lifecycle.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop lifecycle manager")
	}

	d.logger.Info().Msg("Daemon stopped successfully")

	return nil
}

// Wait blocks until SIGINT or SIGTERM arrives, then stops the daemon.
func (d *Daemon) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	d.logger.Info().Str("signal", sig.String()).Msg("Received signal")

	if err := d.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop daemon")
	}
}

// Status reports whether the daemon is running and for how long.
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := Status{
		Running: d.running,
	}

	if d.running {
		status.Uptime = time.Since(d.startTime)
		status.StartTime = d.startTime
	}

	return status
}

// Status represents daemon status.
type Status struct {
	Running   bool
	Uptime    time.Duration
	StartTime time.Time
}

// GetConfig returns the daemon configuration.
func (d *Daemon) GetConfig() *config.Config {
	return d.config
}

// GetLogger returns the daemon logger.
func (d *Daemon) GetLogger() *logger.Logger {
	return d.logger
}

// GetHub returns the chat hub.
func (d *Daemon) GetHub() *hub.Server {
	return d.hub
}

// GetGateway returns the WebSocket gateway, nil when disabled.
func (d *Daemon) GetGateway() *gateway.Gateway {
	return d.gateway
}

// GetBoard returns the bulletin board, nil when disabled.
func (d *Daemon) GetBoard() *bulletin.Board {
	return d.board
}
