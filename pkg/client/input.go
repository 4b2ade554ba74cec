package client

import (
	"strings"

	"github.com/harun/parley/pkg/protocol"
)

const (
	listKeyword = "/list"
	quitKeyword = "/quit"
)

// ParseInput turns one line typed at the prompt into the envelope to
// send, attributed to sender. Blank lines produce no envelope; the /list
// and /quit keywords become their command envelopes; everything else is
// chat text.
func ParseInput(line, sender string) (protocol.Envelope, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return protocol.Envelope{}, false
	}

	switch trimmed {
	case listKeyword:
		return protocol.NewListRequest(), true
	case quitKeyword:
		return protocol.NewQuit(sender), true
	}
	return protocol.NewMessage(sender, trimmed), true
}
