package protocol

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxNameLen is the upper bound on display-name length, in characters.
const MaxNameLen = 20

const (
	listKeyword = "/list"
	quitKeyword = "/quit"
)

var (
	// ErrEmptyLine indicates a line that is blank after trimming.
	ErrEmptyLine = errors.New("empty line")

	// ErrMalformedLine indicates input that is neither a recognized
	// command keyword nor a decodable envelope.
	ErrMalformedLine = errors.New("malformed line")

	// ErrInvalidName indicates a display name outside the 1-20 character rule.
	ErrInvalidName = errors.New("invalid display name")
)

// ParseLine interprets one raw line received from a client. The literal
// keywords /list and /quit are recognized whether they arrive bare or
// wrapped in a message envelope, so older clients that send keywords as
// plain chat text still work.
func ParseLine(raw string) (Envelope, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Envelope{}, ErrEmptyLine
	}

	switch trimmed {
	case listKeyword:
		return NewListRequest(), nil
	case quitKeyword:
		return Envelope{Kind: KindQuit}, nil
	}

	env, err := Decode([]byte(trimmed))
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedLine, err)
	}

	if env.Kind == KindMessage {
		switch strings.TrimSpace(env.Body) {
		case listKeyword:
			return NewListRequest(), nil
		case quitKeyword:
			return Envelope{Kind: KindQuit, Sender: env.Sender}, nil
		}
	}
	return env, nil
}

// ValidateName enforces the display-name rule. The name must already be
// trimmed; callers normalize with strings.TrimSpace first.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: must not be empty", ErrInvalidName)
	}
	if utf8.RuneCountInString(name) > MaxNameLen {
		return fmt.Errorf("%w: must be at most %d characters", ErrInvalidName, MaxNameLen)
	}
	return nil
}
