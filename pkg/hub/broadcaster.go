package hub

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/harun/parley/internal/observability"
	"github.com/harun/parley/pkg/protocol"
)

// Broadcaster fans each envelope out to every registered session except
// its sender. An envelope is serialized exactly once, appended to history,
// then delivered against a membership snapshot taken after the append.
type Broadcaster struct {
	registry *Registry
	history  *History
	logger   zerolog.Logger
}

// NewBroadcaster creates a broadcaster over the given registry and history.
func NewBroadcaster(registry *Registry, history *History, logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		history:  history,
		logger:   logger,
	}
}

// Broadcast appends env to history and delivers it to every session except
// senderID. A write failure marks that session for pruning but never aborts
// the pass; the remaining sessions still receive the envelope. Failed
// sessions are unregistered and their connections closed after the pass.
func (b *Broadcaster) Broadcast(senderID string, env protocol.Envelope) {
	start := time.Now()

	line, err := protocol.Encode(env)
	if err != nil {
		b.logger.Error().
			Err(err).
			Str("kind", env.Kind.String()).
			Msg("Failed to encode envelope")
		return
	}

	b.history.Append(env, line)
	observability.SetHistoryEntries(b.history.Len())

	targets := b.registry.SnapshotWriters()

	successCount := 0
	var failed []RegisteredWriter
	for _, target := range targets {
		if target.ID == senderID {
			continue
		}
		if err := target.Writer.WriteLine(line); err != nil {
			b.logger.Warn().
				Err(err).
				Str("sessionId", target.ID).
				Str("kind", env.Kind.String()).
				Msg("Failed to broadcast to session")
			failed = append(failed, target)
			continue
		}
		successCount++
	}

	for _, target := range failed {
		b.registry.Unregister(target.ID)
		_ = target.Writer.Close()
		observability.RecordSessionPruned(b.registry.Len())
		b.logger.Info().
			Str("sessionId", target.ID).
			Msg("Pruned unresponsive session")
	}

	observability.RecordBroadcast(env.Kind.String(), time.Since(start), len(failed))

	b.logger.Debug().
		Str("kind", env.Kind.String()).
		Int("delivered", successCount).
		Int("pruned", len(failed)).
		Int("history", b.history.Len()).
		Msg("Broadcast complete")
}
