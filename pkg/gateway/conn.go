package gateway

import (
	"bytes"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsAddr labels a websocket endpoint as a net.Addr
type wsAddr struct {
	addr string
}

func (a wsAddr) Network() string { return "ws" }
func (a wsAddr) String() string  { return a.addr }

// Conn adapts a websocket connection to net.Conn so the hub can run a
// browser client through the same session loop as a raw TCP one. Each
// inbound text frame becomes one newline-terminated line; each outbound
// line becomes one text frame with the newline stripped.
type Conn struct {
	ws *websocket.Conn

	// readBuf holds frame bytes not yet consumed by Read. Only the
	// session's read goroutine touches it.
	readBuf bytes.Buffer

	writeMu sync.Mutex
}

// NewConn wraps an upgraded websocket connection
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// Read yields the next frame's bytes with a newline appended
func (c *Conn) Read(p []byte) (int, error) {
	for c.readBuf.Len() == 0 {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return 0, translateClose(err)
		}
		c.readBuf.Write(data)
		if len(data) == 0 || data[len(data)-1] != '\n' {
			c.readBuf.WriteByte('\n')
		}
	}
	return c.readBuf.Read(p)
}

// Write sends each line of p as its own text frame
func (c *Conn) Write(p []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	payload := bytes.TrimSuffix(p, []byte("\n"))
	for _, line := range bytes.Split(payload, []byte("\n")) {
		if err := c.ws.WriteMessage(websocket.TextMessage, line); err != nil {
			return 0, translateClose(err)
		}
	}
	return len(p), nil
}

// Close sends a close frame best-effort and tears the socket down
func (c *Conn) Close() error {
	deadline := time.Now().Add(time.Second)
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return c.ws.Close()
}

// LocalAddr returns the local endpoint of the underlying socket
func (c *Conn) LocalAddr() net.Addr {
	return wsAddr{addr: "ws:" + c.ws.LocalAddr().String()}
}

// RemoteAddr returns the peer endpoint. The ws prefix keeps gateway
// sessions distinguishable from direct TCP ones in the registry and logs.
func (c *Conn) RemoteAddr() net.Addr {
	return wsAddr{addr: "ws:" + c.ws.RemoteAddr().String()}
}

// SetDeadline applies t to both directions
func (c *Conn) SetDeadline(t time.Time) error {
	if err := c.ws.SetReadDeadline(t); err != nil {
		return err
	}
	return c.ws.SetWriteDeadline(t)
}

// SetReadDeadline applies t to reads
func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.ws.SetReadDeadline(t)
}

// SetWriteDeadline applies t to writes
func (c *Conn) SetWriteDeadline(t time.Time) error {
	return c.ws.SetWriteDeadline(t)
}

// translateClose maps an orderly websocket close onto io.EOF so the
// session loop takes its normal disconnect path
func translateClose(err error) error {
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived) {
		return io.EOF
	}
	return err
}
