package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindMarshalJSON(t *testing.T) {
	t.Run("should encode plain kinds as strings", func(t *testing.T) {
		tests := []struct {
			kind Kind
			want string
		}{
			{KindMessage, `"message"`},
			{KindJoin, `"join"`},
			{KindLeave, `"leave"`},
		}
		for _, tt := range tests {
			data, err := tt.kind.MarshalJSON()
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		}
	})

	t.Run("should encode command kinds as objects", func(t *testing.T) {
		data, err := KindList.MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t, `{"command":"list"}`, string(data))

		data, err = KindQuit.MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t, `{"command":"quit"}`, string(data))
	})
}

func TestKindUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Kind
	}{
		{"message string", `"message"`, KindMessage},
		{"join string", `"join"`, KindJoin},
		{"leave string", `"leave"`, KindLeave},
		{"list command", `{"command":"list"}`, KindList},
		{"quit command", `{"command":"quit"}`, KindQuit},
		{"unknown string degrades to message", `"shout"`, KindMessage},
		{"unknown command degrades to message", `{"command":"dance"}`, KindMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var k Kind
			require.NoError(t, k.UnmarshalJSON([]byte(tt.data)))
			assert.Equal(t, tt.want, k)
		})
	}

	t.Run("should reject non-string non-object tags", func(t *testing.T) {
		var k Kind
		assert.Error(t, k.UnmarshalJSON([]byte(`42`)))
	})
}

func TestEncodeDecode(t *testing.T) {
	t.Run("should round-trip every kind", func(t *testing.T) {
		envs := []Envelope{
			NewMessage("alice", "hello"),
			NewJoin("alice"),
			NewLeave("bob"),
			NewListRequest(),
			NewListResponse("Online users: alice"),
			NewQuit("alice"),
		}
		for _, env := range envs {
			data, err := Encode(env)
			require.NoError(t, err)

			got, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, env, got)
		}
	})

	t.Run("should omit username when sender is empty", func(t *testing.T) {
		data, err := Encode(NewListResponse("No users online."))
		require.NoError(t, err)
		assert.NotContains(t, string(data), "username")
	})

	t.Run("should decode hand-written wire lines", func(t *testing.T) {
		got, err := Decode([]byte(`{"message_type":"join","username":"alice","content":"alice has joined the chat"}`))
		require.NoError(t, err)
		assert.Equal(t, NewJoin("alice"), got)

		got, err = Decode([]byte(`{"message_type":{"command":"quit"},"username":"bob","content":""}`))
		require.NoError(t, err)
		assert.Equal(t, KindQuit, got.Kind)
		assert.Equal(t, "bob", got.Sender)
	})

	t.Run("should fail on invalid json", func(t *testing.T) {
		_, err := Decode([]byte(`{"message_type":`))
		assert.Error(t, err)
	})
}

func TestNotices(t *testing.T) {
	t.Run("should carry canonical join and leave bodies", func(t *testing.T) {
		assert.Equal(t, "alice has joined the chat", NewJoin("alice").Body)
		assert.Equal(t, "alice has left the chat", NewLeave("alice").Body)
	})
}
