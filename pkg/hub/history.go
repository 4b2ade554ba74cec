package hub

import (
	"fmt"
	"sync"

	"github.com/samber/lo"

	"github.com/harun/parley/pkg/protocol"
)

// Entry is one appended history record: the envelope plus its serialized
// wire line, so replay never re-encodes.
type Entry struct {
	Envelope protocol.Envelope
	Line     []byte
}

// History is the append-only log of every broadcast envelope since start.
// Direct replies are never recorded here.
type History struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewHistory creates an empty history log.
func NewHistory() *History {
	return &History{}
}

// Append records a broadcast envelope together with its serialized line.
func (h *History) Append(env protocol.Envelope, line []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, Entry{Envelope: env, Line: line})
}

// ReplayInto writes every recorded line to w, oldest first, and returns
// how many lines were sent. The read lock is held across the writes, so
// no append can commit mid-replay: a joiner always receives an exact
// prefix of the log, at the cost of stalling appends while it drains.
func (h *History) ReplayInto(w *Writer) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for i, entry := range h.entries {
		if err := w.WriteLine(entry.Line); err != nil {
			return i, fmt.Errorf("failed to replay history: %w", err)
		}
	}
	return len(h.entries), nil
}

// Len returns the number of recorded entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.entries)
}

// Snapshot returns a copy of the recorded envelopes, oldest first.
func (h *History) Snapshot() []protocol.Envelope {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return lo.Map(h.entries, func(e Entry, _ int) protocol.Envelope {
		return e.Envelope
	})
}
