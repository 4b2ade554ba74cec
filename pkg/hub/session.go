package hub

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/harun/parley/internal/observability"
	"github.com/harun/parley/pkg/protocol"
)

// SessionState tracks where a session is in its lifecycle.
type SessionState int

const (
	// StateConnecting covers accept until the writer is registered.
	StateConnecting SessionState = iota
	// StateAwaitingIdentity covers the wait for the join envelope.
	StateAwaitingIdentity
	// StateActive covers the message loop.
	StateActive
	// StateDisconnecting covers teardown.
	StateDisconnecting
	// StateClosed is terminal.
	StateClosed
)

// String returns the lowercase state tag used in logs.
func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAwaitingIdentity:
		return "awaiting_identity"
	case StateActive:
		return "active"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "closed"
	}
}

// SessionOptions configures one session loop.
type SessionOptions struct {
	Conn         net.Conn
	Registry     *Registry
	History      *History
	Broadcaster  *Broadcaster
	MOTD         func() string
	WriteTimeout time.Duration
	MaxLineBytes int
	Logger       zerolog.Logger
}

// Session drives one client connection from accept to teardown. It owns
// the read half of the connection exclusively; the write half is shared
// with the broadcast engine through the registered Writer.
type Session struct {
	id       string
	identity string
	conn     net.Conn
	writer   *Writer
	registry *Registry
	history  *History
	caster   *Broadcaster
	motd     func() string
	maxLine  int
	logger   zerolog.Logger

	state SessionState
	name  string
	left  bool
}

// NewSession prepares a session for a connection. The connection's remote
// address becomes the registry identity; a short random id correlates log
// lines across the session's lifetime.
func NewSession(opts SessionOptions) *Session {
	sessionID, _ := gonanoid.New()
	identity := opts.Conn.RemoteAddr().String()
	return &Session{
		id:       sessionID,
		identity: identity,
		conn:     opts.Conn,
		writer:   NewWriter(opts.Conn, opts.WriteTimeout),
		registry: opts.Registry,
		history:  opts.History,
		caster:   opts.Broadcaster,
		motd:     opts.MOTD,
		maxLine:  opts.MaxLineBytes,
		logger: opts.Logger.With().
			Str("sessionId", sessionID).
			Str("identity", identity).
			Logger(),
	}
}

// Identity returns the registry key for this session.
func (s *Session) Identity() string {
	return s.identity
}

// Name returns the display name, empty until the handshake completes.
func (s *Session) Name() string {
	return s.name
}

// State returns the lifecycle state last entered.
func (s *Session) State() SessionState {
	return s.state
}

// Run drives the session to completion: register the writer, wait for the
// join envelope, replay history, announce the join, then relay lines until
// the peer quits or drops. Run blocks until teardown finishes and always
// closes the connection.
func (s *Session) Run() {
	defer func() {
		_ = s.writer.Close()
		s.state = StateClosed
	}()

	if err := s.registry.Register(s.identity, s.writer); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to register session")
		return
	}
	observability.RecordSessionOpened(s.registry.Len())
	s.logger.Info().Msg("Session connected")

	scanner := bufio.NewScanner(s.conn)
	if s.maxLine > 0 {
		scanner.Buffer(make([]byte, 0, 4096), s.maxLine)
	}

	s.state = StateAwaitingIdentity
	if err := s.handshake(scanner); err != nil {
		s.registry.Unregister(s.identity)
		observability.RecordHandshakeFailure()
		observability.RecordSessionClosed("handshake", s.registry.Len())
		if errors.Is(err, io.EOF) {
			s.logger.Debug().Msg("Session ended before handshake")
		} else {
			s.logger.Warn().Err(err).Msg("Session ended before becoming active")
		}
		return
	}

	s.state = StateActive
	quit := s.loop(scanner)

	s.state = StateDisconnecting
	s.teardown(quit)
}

// handshake reads the single join envelope and promotes the session: name
// recorded, greeting sent, history replayed, join broadcast. On any failure
// the caller removes the registry entry and nothing has been broadcast.
func (s *Session) handshake(scanner *bufio.Scanner) error {
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
		}
		return io.EOF
	}

	env, err := protocol.ParseLine(scanner.Text())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}

	name := strings.TrimSpace(env.Sender)
	if err := protocol.ValidateName(name); err != nil {
		return fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}

	if err := s.registry.SetName(s.identity, name); err != nil {
		return fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}
	s.name = name
	s.logger = s.logger.With().Str("name", name).Logger()

	if s.motd != nil {
		if motd := s.motd(); motd != "" {
			if err := s.writeDirect(protocol.NewMessage("server", motd)); err != nil {
				return fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
			}
		}
	}

	start := time.Now()
	replayed, err := s.history.ReplayInto(s.writer)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}
	observability.RecordHistoryReplay(time.Since(start))

	s.caster.Broadcast(s.identity, protocol.NewJoin(name))

	s.logger.Info().Int("replayed", replayed).Msg("Session active")
	return nil
}

// loop relays lines until the peer quits or the read side ends. It reports
// whether the session ended with an explicit quit.
func (s *Session) loop(scanner *bufio.Scanner) bool {
	for scanner.Scan() {
		if s.handleLine(scanner.Text()) {
			return true
		}
	}
	if err := scanner.Err(); err != nil {
		s.logger.Warn().Err(err).Msg("Read failed")
	}
	return false
}

// handleLine dispatches one inbound line. It reports whether the line
// asked to end the session.
func (s *Session) handleLine(raw string) bool {
	env, err := protocol.ParseLine(raw)
	if err != nil {
		if errors.Is(err, protocol.ErrEmptyLine) {
			observability.RecordLineReceived("empty")
			return false
		}
		observability.RecordLineReceived("malformed")
		s.logger.Warn().Err(err).Msg("Dropping undecodable line")
		return false
	}
	observability.RecordLineReceived("ok")

	switch env.Kind {
	case protocol.KindList:
		s.sendRoster()
		return false
	case protocol.KindQuit, protocol.KindLeave:
		// a leave from the client is an announced departure, same as /quit
		return true
	case protocol.KindJoin:
		s.logger.Debug().Msg("Ignoring join envelope from active session")
		return false
	default:
		// attribution is server-side: whatever sender the client claimed
		// is replaced with the handshake name
		s.caster.Broadcast(s.identity, protocol.NewMessage(s.name, env.Body))
		return false
	}
}

// sendRoster writes the roster reply directly to this session only. The
// reply is never broadcast and never appended to history.
func (s *Session) sendRoster() {
	body := RosterBody(s.registry.SnapshotNames())
	if err := s.writeDirect(protocol.NewListResponse(body)); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to send roster")
	}
}

// teardown announces the departure and removes the session. The left flag
// guarantees the leave notice fires exactly once no matter which path
// reached teardown.
func (s *Session) teardown(quit bool) {
	if s.left {
		return
	}
	s.left = true

	leave := protocol.NewLeave(s.name)
	s.caster.Broadcast(s.identity, leave)

	if quit {
		// the departing client gets the same notice as a direct
		// acknowledgment before its connection closes
		if err := s.writeDirect(leave); err != nil {
			s.logger.Debug().Err(err).Msg("Failed to acknowledge quit")
		}
	}

	s.registry.Unregister(s.identity)

	reason := "disconnect"
	if quit {
		reason = "quit"
	}
	observability.RecordSessionClosed(reason, s.registry.Len())
	s.logger.Info().Str("reason", reason).Msg("Session closed")
}

// writeDirect serializes env and writes it to this session alone.
func (s *Session) writeDirect(env protocol.Envelope) error {
	line, err := protocol.Encode(env)
	if err != nil {
		return err
	}
	return s.writer.WriteLine(line)
}

// RosterBody renders the roster reply body for the given names.
func RosterBody(names []string) string {
	if len(names) == 0 {
		return "No users online."
	}
	return "Online users: " + strings.Join(names, ", ")
}
