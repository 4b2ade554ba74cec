// Package protocol defines the newline-delimited JSON wire format spoken
// between the hub and its clients.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Kind identifies the variant of an Envelope.
type Kind int

const (
	// KindMessage is ordinary chat text.
	KindMessage Kind = iota
	// KindJoin announces that a session became active.
	KindJoin
	// KindLeave announces that a session ended, whether by explicit quit
	// or by connection drop.
	KindLeave
	// KindList asks for (or carries) the active roster.
	KindList
	// KindQuit announces an intentional departure.
	KindQuit
)

// String returns the lowercase tag used on the wire and in logs.
func (k Kind) String() string {
	switch k {
	case KindJoin:
		return "join"
	case KindLeave:
		return "leave"
	case KindList:
		return "list"
	case KindQuit:
		return "quit"
	default:
		return "message"
	}
}

// MarshalJSON encodes the kind in the historical wire shape: plain strings
// for message/join/leave, a {"command": ...} object for list/quit.
func (k Kind) MarshalJSON() ([]byte, error) {
	switch k {
	case KindJoin:
		return []byte(`"join"`), nil
	case KindLeave:
		return []byte(`"leave"`), nil
	case KindList:
		return []byte(`{"command":"list"}`), nil
	case KindQuit:
		return []byte(`{"command":"quit"}`), nil
	default:
		return []byte(`"message"`), nil
	}
}

// UnmarshalJSON accepts both the string and the command-object wire shapes.
// Unrecognized tags degrade to KindMessage so the variant set stays closed.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		switch tag {
		case "join":
			*k = KindJoin
		case "leave":
			*k = KindLeave
		default:
			*k = KindMessage
		}
		return nil
	}

	var cmd struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(data, &cmd); err != nil {
		return fmt.Errorf("invalid message kind: %w", err)
	}
	switch cmd.Command {
	case "list":
		*k = KindList
	case "quit":
		*k = KindQuit
	default:
		*k = KindMessage
	}
	return nil
}

// Envelope is one unit of chat communication. Sender is empty for
// system-originated envelopes with no single author, such as list responses.
type Envelope struct {
	Kind   Kind   `json:"message_type"`
	Sender string `json:"username,omitempty"`
	Body   string `json:"content"`
}

// Encode serializes an envelope to its wire form, without the trailing
// line terminator.
func Encode(env Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return data, nil
}

// Decode parses a single serialized envelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to decode envelope: %w", err)
	}
	return env, nil
}

// NewMessage builds an ordinary chat message attributed to sender.
func NewMessage(sender, body string) Envelope {
	return Envelope{Kind: KindMessage, Sender: sender, Body: body}
}

// NewJoin builds the join notice broadcast when a session becomes active.
func NewJoin(name string) Envelope {
	return Envelope{Kind: KindJoin, Sender: name, Body: fmt.Sprintf("%s has joined the chat", name)}
}

// NewLeave builds the leave notice broadcast when a session ends.
func NewLeave(name string) Envelope {
	return Envelope{Kind: KindLeave, Sender: name, Body: fmt.Sprintf("%s has left the chat", name)}
}

// NewListRequest builds a roster request. List envelopes never carry a sender.
func NewListRequest() Envelope {
	return Envelope{Kind: KindList}
}

// NewListResponse builds the direct-only roster reply.
func NewListResponse(body string) Envelope {
	return Envelope{Kind: KindList, Body: body}
}

// NewQuit builds the intentional-departure command sent by a client.
func NewQuit(name string) Envelope {
	return Envelope{Kind: KindQuit, Sender: name}
}
