package hub

import (
	"fmt"
	"net"
	"sync"
	"time"
)

// Writer is the send half of one client connection. A mutex serializes
// writes so broadcast fan-out, history replay, and direct replies never
// interleave bytes on the wire.
type Writer struct {
	mu      sync.Mutex
	conn    net.Conn
	timeout time.Duration
}

// NewWriter wraps the send half of conn. A zero timeout disables write
// deadlines, letting a write block as long as the peer stalls.
func NewWriter(conn net.Conn, timeout time.Duration) *Writer {
	return &Writer{conn: conn, timeout: timeout}
}

// WriteLine sends one serialized envelope followed by the line terminator.
// The line and terminator go out in a single write.
func (w *Writer) WriteLine(line []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timeout > 0 {
		if err := w.conn.SetWriteDeadline(time.Now().Add(w.timeout)); err != nil {
			return fmt.Errorf("failed to set write deadline: %w", err)
		}
	}

	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, '\n')
	if _, err := w.conn.Write(buf); err != nil {
		return fmt.Errorf("failed to write line: %w", err)
	}
	return nil
}

// Close closes the underlying connection. In-flight and later writes fail.
func (w *Writer) Close() error {
	return w.conn.Close()
}

// RemoteAddr reports the peer address of the underlying connection.
func (w *Writer) RemoteAddr() string {
	return w.conn.RemoteAddr().String()
}
