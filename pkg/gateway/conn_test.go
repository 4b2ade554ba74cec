package gateway

import (
	"bufio"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsPair upgrades one websocket and hands back the server side wrapped
// in a Conn plus the raw client side.
func wsPair(t *testing.T) (*Conn, *websocket.Conn) {
	t.Helper()

	conns := make(chan *Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- NewConn(ws)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	select {
	case conn := <-conns:
		t.Cleanup(func() { _ = conn.Close() })
		return conn, client
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for upgrade")
		return nil, nil
	}
}

func TestConn_FramesBecomeLines(t *testing.T) {
	server, client := wsPair(t)

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`{"message_type":"message"}`)))
	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("second")))

	reader := bufio.NewReader(server)

	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, `{"message_type":"message"}`+"\n", line)

	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "second\n", line)
}

func TestConn_FrameWithTrailingNewline(t *testing.T) {
	server, client := wsPair(t)

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("already terminated\n")))

	reader := bufio.NewReader(server)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)

	// The newline must not be doubled
	assert.Equal(t, "already terminated\n", line)
}

func TestConn_LinesBecomeFrames(t *testing.T) {
	server, client := wsPair(t)

	_, err := server.Write([]byte("hello there\n"))
	require.NoError(t, err)

	mt, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, mt)
	assert.Equal(t, "hello there", string(data))
}

func TestConn_MultiLineWriteSplitsFrames(t *testing.T) {
	server, client := wsPair(t)

	_, err := server.Write([]byte("one\ntwo\n"))
	require.NoError(t, err)

	_, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))

	_, data, err = client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestConn_GracefulCloseReadsEOF(t *testing.T) {
	server, client := wsPair(t)

	require.NoError(t, client.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))

	buf := make([]byte, 16)
	_, err := server.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestConn_AbruptCloseIsAnError(t *testing.T) {
	server, client := wsPair(t)

	// Drop the TCP connection without a close frame
	require.NoError(t, client.UnderlyingConn().Close())

	buf := make([]byte, 16)
	_, err := server.Read(buf)
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}

func TestConn_Addresses(t *testing.T) {
	server, _ := wsPair(t)

	remote := server.RemoteAddr()
	assert.Equal(t, "ws", remote.Network())
	assert.True(t, strings.HasPrefix(remote.String(), "ws:"))

	local := server.LocalAddr()
	assert.Equal(t, "ws", local.Network())
	assert.True(t, strings.HasPrefix(local.String(), "ws:"))
}
