// Package client implements the interactive terminal client behind the
// parley chat command: connect, pick a name, then relay lines between
// the terminal and the hub until quit or disconnect.
package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/harun/parley/pkg/protocol"
)

const (
	// DefaultHost is the hub address dialed when none is configured.
	DefaultHost = "127.0.0.1"
	// DefaultPort is the historical chat port.
	DefaultPort = 8081

	// maxIncomingLineBytes bounds one line received from the hub. Slightly
	// above the hub's inbound cap so envelope overhead never truncates.
	maxIncomingLineBytes = 128 * 1024

	// leaveDrainTimeout bounds how long departure waits for the hub to
	// acknowledge and close the connection.
	leaveDrainTimeout = 2 * time.Second
)

// Options configures a terminal client. Zero fields fall back to the
// package defaults; Input and Output default to the process terminal.
type Options struct {
	Host   string
	Port   int
	Name   string // skips the username prompt when set
	Colors bool
	Input  io.Reader
	Output io.Writer
	Logger zerolog.Logger
}

// Client connects to a hub, performs the join handshake, and relays
// between the terminal and the hub. The zero value is not usable; build
// one with New.
type Client struct {
	host     string
	port     int
	name     string
	in       *bufio.Reader
	out      io.Writer
	renderer *Renderer
	logger   zerolog.Logger

	conn net.Conn
	quit atomic.Bool
}

// New builds a client from opts.
func New(opts Options) *Client {
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.Port <= 0 {
		opts.Port = DefaultPort
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Client{
		host:     opts.Host,
		port:     opts.Port,
		name:     opts.Name,
		in:       bufio.NewReader(opts.Input),
		out:      opts.Output,
		renderer: NewRenderer(opts.Colors),
		logger:   opts.Logger,
	}
}

// Name returns the display name in use, empty before the handshake.
func (c *Client) Name() string {
	return c.name
}

// Run connects and drives the conversation until the user quits, the hub
// closes the connection, or ctx is canceled. It blocks for the whole
// session and always leaves the connection closed.
func (c *Client) Run(ctx context.Context) error {
	addr := net.JoinHostPort(c.host, strconv.Itoa(c.port))
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	c.conn = conn
	defer conn.Close()

	fmt.Fprintln(c.out, "Connected to the server!")
	c.logger.Info().Str("addr", addr).Msg("Connected to hub")

	name, err := c.resolveName()
	if err != nil {
		return err
	}
	c.name = name

	if err := c.send(protocol.NewJoin(name)); err != nil {
		return fmt.Errorf("failed to join: %w", err)
	}

	incomingDone := make(chan error, 1)
	go func() { incomingDone <- c.readLoop() }()

	done := make(chan struct{})
	defer close(done)
	lines := make(chan string)
	go c.inputLoop(done, lines)

	c.printPrompt()
	for {
		select {
		case <-ctx.Done():
			return c.leave(true, incomingDone)

		case err := <-incomingDone:
			fmt.Fprintln(c.out, "\r\x1b[2KConnection closed by server.")
			return err

		case line, ok := <-lines:
			if !ok {
				// terminal input ended, same as an explicit /quit
				return c.leave(true, incomingDone)
			}
			env, ok := ParseInput(line, c.name)
			if !ok {
				c.printPrompt()
				continue
			}
			if err := c.send(env); err != nil {
				fmt.Fprintf(c.out, "\r\x1b[2KFailed to send message: %v\n", err)
				c.printPrompt()
				continue
			}
			if env.Kind == protocol.KindQuit {
				return c.leave(false, incomingDone)
			}
			c.printPrompt()
		}
	}
}

// resolveName returns the preset name when one was given, otherwise
// prompts until the terminal supplies a valid one.
func (c *Client) resolveName() (string, error) {
	if c.name != "" {
		if err := protocol.ValidateName(c.name); err != nil {
			return "", err
		}
		return c.name, nil
	}

	for {
		fmt.Fprint(c.out, "Enter your username: ")
		line, err := c.in.ReadString('\n')
		name := strings.TrimSpace(line)
		if verr := protocol.ValidateName(name); verr == nil {
			return name, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to read username: %w", err)
		}
		fmt.Fprintf(c.out, "Invalid username. It must be between 1 and %d characters.\n", protocol.MaxNameLen)
	}
}

// readLoop renders every line the hub sends until the connection ends.
// Once the quit flag is set, remaining lines are drained silently so the
// departure acknowledgment never races the goodbye message.
func (c *Client) readLoop() error {
	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 0, 4096), maxIncomingLineBytes)

	for scanner.Scan() {
		if c.quit.Load() {
			return nil
		}
		env, err := protocol.Decode(scanner.Bytes())
		if err != nil {
			c.logger.Error().Err(err).Str("line", scanner.Text()).Msg("Failed to parse message")
			continue
		}
		if line := c.renderer.Render(env); line != "" {
			fmt.Fprintf(c.out, "\r\x1b[2K%s\n", line)
			c.printPrompt()
		}
	}
	return scanner.Err()
}

// inputLoop feeds terminal lines into the run loop. It ends when the
// input reader does, closing lines so the run loop can treat terminal
// EOF as a departure.
func (c *Client) inputLoop(done <-chan struct{}, lines chan<- string) {
	defer close(lines)
	for {
		line, err := c.in.ReadString('\n')
		if line != "" {
			select {
			case lines <- line:
			case <-done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// leave ends the session: set the quit flag, announce the departure
// unless one was already sent, then wait for the hub to acknowledge and
// close. The read deadline keeps the wait bounded when the hub is gone.
func (c *Client) leave(announce bool, incomingDone <-chan error) error {
	c.quit.Store(true)
	if announce {
		if err := c.send(protocol.NewQuit(c.name)); err != nil {
			c.logger.Debug().Err(err).Msg("Failed to announce departure")
		}
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(leaveDrainTimeout))
	<-incomingDone

	fmt.Fprintln(c.out, "\r\x1b[2KYou have disconnected from the chat.")
	return nil
}

// send serializes env and writes it as one line.
func (c *Client) send(env protocol.Envelope) error {
	line, err := protocol.Encode(env)
	if err != nil {
		return err
	}
	_, err = c.conn.Write(append(line, '\n'))
	return err
}

func (c *Client) printPrompt() {
	fmt.Fprint(c.out, "\r\x1b[2K[You]: ")
}
