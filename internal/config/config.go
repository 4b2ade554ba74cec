package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Config represents the main Parley configuration
type Config struct {
	// Hub server
	Server ServerConfig `json:"server" mapstructure:"server"`

	// WebSocket gateway
	Gateway GatewayConfig `json:"gateway" mapstructure:"gateway"`

	// Bulletin board (MOTD and scheduled announcements)
	Bulletin BulletinConfig `json:"bulletin" mapstructure:"bulletin"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// ServerConfig holds the TCP hub configuration
type ServerConfig struct {
	Host            string `json:"host" mapstructure:"host" validate:"required"`
	Port            int    `json:"port" mapstructure:"port" validate:"gte=1,lte=65535"`
	MaxPortRetries  int    `json:"max_port_retries" mapstructure:"max_port_retries" validate:"gte=0"`
	WriteTimeoutMS  int    `json:"write_timeout_ms" mapstructure:"write_timeout_ms" validate:"gte=0"`
	MaxLineBytes    int    `json:"max_line_bytes" mapstructure:"max_line_bytes" validate:"gte=0"`
	ShutdownGraceMS int    `json:"shutdown_grace_ms" mapstructure:"shutdown_grace_ms" validate:"gte=0"`
}

// WriteTimeout returns the broadcast write deadline as a duration
func (c ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutMS) * time.Millisecond
}

// ShutdownGrace returns the shutdown drain window as a duration
func (c ServerConfig) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownGraceMS) * time.Millisecond
}

// GatewayConfig holds WebSocket gateway configuration
type GatewayConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Host    string `json:"host" mapstructure:"host" validate:"required"`
	Port    int    `json:"port" mapstructure:"port" validate:"gte=1,lte=65535"`
}

// BulletinConfig holds bulletin board configuration
type BulletinConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	File    string `json:"file" mapstructure:"file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string `json:"level" mapstructure:"level" validate:"required"`
	File     string `json:"file" mapstructure:"file"`
	MaxSize  int    `json:"max_size" mapstructure:"max_size" validate:"gte=0"` // MB
	MaxAge   int    `json:"max_age" mapstructure:"max_age" validate:"gte=0"`   // days
	Compress bool   `json:"compress" mapstructure:"compress"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8081,
			MaxPortRetries:  10,
			WriteTimeoutMS:  10000,
			MaxLineBytes:    64 * 1024,
			ShutdownGraceMS: 5000,
		},
		Gateway: GatewayConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8082,
		},
		Bulletin: BulletinConfig{
			Enabled: true,
			File:    "",
		},
		Logging: LoggingConfig{
			Level:    "info",
			MaxSize:  50,
			MaxAge:   7,
			Compress: true,
		},
		DataDir: "",
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	errs := NewValidator().ValidateConfig(c)
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
}
