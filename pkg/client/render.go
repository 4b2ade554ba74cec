package client

import (
	"fmt"

	"github.com/gookit/color"

	"github.com/harun/parley/pkg/protocol"
)

var (
	senderStyle = color.New(color.FgCyan, color.OpBold)
	systemStyle = color.New(color.FgGray)
	rosterStyle = color.New(color.FgGreen)
)

// Renderer formats incoming envelopes for the terminal. With colors off
// every style collapses to plain text.
type Renderer struct {
	colors bool
}

// NewRenderer builds a renderer.
func NewRenderer(colors bool) *Renderer {
	return &Renderer{colors: colors}
}

// Render returns the display line for env, or the empty string for
// envelopes that produce no terminal output.
func (r *Renderer) Render(env protocol.Envelope) string {
	switch env.Kind {
	case protocol.KindJoin, protocol.KindLeave:
		return r.paint(systemStyle, env.Body)
	case protocol.KindList:
		return r.paint(rosterStyle, env.Body)
	case protocol.KindQuit:
		if env.Sender == "" {
			return ""
		}
		return r.paint(systemStyle, fmt.Sprintf("%s has left the chat.", env.Sender))
	default:
		if env.Sender == "" {
			return ""
		}
		return fmt.Sprintf("%s %s", r.paint(senderStyle, "["+env.Sender+"]:"), env.Body)
	}
}

func (r *Renderer) paint(style color.Style, text string) string {
	if !r.colors {
		return text
	}
	return style.Render(text)
}
