package hub

import "errors"

var (
	// ErrRegistryClosed is returned when registering against a closed registry
	ErrRegistryClosed = errors.New("session registry is closed")

	// ErrSessionExists is returned when an identity is already registered
	ErrSessionExists = errors.New("session already registered")

	// ErrSessionNotFound is returned when an identity is not registered
	ErrSessionNotFound = errors.New("session not found")

	// ErrHandshakeFailed is returned when a session ends before presenting a usable name
	ErrHandshakeFailed = errors.New("handshake failed")

	// ErrNoAvailablePorts is returned when every candidate listen port is taken
	ErrNoAvailablePorts = errors.New("no available ports")

	// ErrServerClosed is returned when the server has already been stopped
	ErrServerClosed = errors.New("server closed")
)
