package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/parley/pkg/protocol"
)

func appendEnvelope(t *testing.T, h *History, env protocol.Envelope) {
	t.Helper()

	line, err := protocol.Encode(env)
	require.NoError(t, err)
	h.Append(env, line)
}

func TestHistory_AppendAndSnapshot(t *testing.T) {
	history := NewHistory()
	assert.Equal(t, 0, history.Len())

	first := protocol.NewJoin("alice")
	second := protocol.NewMessage("alice", "hello")
	appendEnvelope(t, history, first)
	appendEnvelope(t, history, second)

	assert.Equal(t, 2, history.Len())
	assert.Equal(t, []protocol.Envelope{first, second}, history.Snapshot())
}

func TestHistory_ReplayInto(t *testing.T) {
	history := NewHistory()
	appendEnvelope(t, history, protocol.NewJoin("alice"))
	appendEnvelope(t, history, protocol.NewMessage("alice", "one"))
	appendEnvelope(t, history, protocol.NewMessage("alice", "two"))

	t.Run("should write every line oldest first", func(t *testing.T) {
		conn := newStubConn("late")
		replayed, err := history.ReplayInto(NewWriter(conn, 0))
		require.NoError(t, err)
		assert.Equal(t, 3, replayed)

		lines := conn.Lines()
		require.Len(t, lines, 3)

		env, err := protocol.Decode([]byte(lines[0]))
		require.NoError(t, err)
		assert.Equal(t, protocol.KindJoin, env.Kind)

		env, err = protocol.Decode([]byte(lines[2]))
		require.NoError(t, err)
		assert.Equal(t, "two", env.Body)
	})

	t.Run("should abort on a dead target", func(t *testing.T) {
		conn := newStubConn("dead")
		conn.failWrites = true
		replayed, err := history.ReplayInto(NewWriter(conn, 0))
		assert.Error(t, err)
		assert.Equal(t, 0, replayed)
	})
}

// gatedConn blocks each write until the test releases it, pinning the
// replay inside its critical section.
type gatedConn struct {
	*stubConn
	gate chan struct{}
}

func (c *gatedConn) Write(p []byte) (int, error) {
	<-c.gate
	return c.stubConn.Write(p)
}

func TestHistory_ReplayBlocksAppends(t *testing.T) {
	history := NewHistory()
	appendEnvelope(t, history, protocol.NewJoin("alice"))
	appendEnvelope(t, history, protocol.NewMessage("alice", "one"))
	appendEnvelope(t, history, protocol.NewMessage("alice", "two"))

	conn := &gatedConn{stubConn: newStubConn("late"), gate: make(chan struct{})}
	replayed := make(chan int, 1)
	go func() {
		n, _ := history.ReplayInto(NewWriter(conn, 0))
		replayed <- n
	}()

	// first release proves the replay holds the read lock
	conn.gate <- struct{}{}

	lateEnv := protocol.NewMessage("bob", "late")
	lateLine, err := protocol.Encode(lateEnv)
	require.NoError(t, err)

	appended := make(chan struct{})
	go func() {
		history.Append(lateEnv, lateLine)
		close(appended)
	}()

	select {
	case <-appended:
		t.Fatal("append committed while a replay was draining")
	case <-time.After(100 * time.Millisecond):
	}

	conn.gate <- struct{}{}
	conn.gate <- struct{}{}

	select {
	case n := <-replayed:
		assert.Equal(t, 3, n)
	case <-time.After(2 * time.Second):
		t.Fatal("replay did not finish")
	}

	select {
	case <-appended:
	case <-time.After(2 * time.Second):
		t.Fatal("append did not commit after replay finished")
	}
	assert.Equal(t, 4, history.Len())
}
