package ws

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// ErrStreamingUnsupported is returned when the response writer cannot flush.
var ErrStreamingUnsupported = errors.New("streaming unsupported")

// SSEClient streams Server-Sent Events over an HTTP response writer.
type SSEClient struct {
	mu      sync.Mutex
	writer  io.Writer
	flusher http.Flusher
	log     *slog.Logger
	closed  bool
	sent    int
	last    time.Time
}

// NewSSEClient writes the event-stream headers and returns a client bound to w.
func NewSSEClient(w http.ResponseWriter, logger *slog.Logger) (*SSEClient, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &SSEClient{writer: w, flusher: flusher, log: logger, last: time.Now().UTC()}, nil
}

// Send emits one data event. Multi-line payloads become one data field per line.
func (c *SSEClient) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return io.EOF
	}

	var frame bytes.Buffer
	for _, line := range bytes.Split(payload, []byte("\n")) {
		frame.WriteString("data: ")
		frame.Write(line)
		frame.WriteByte('\n')
	}
	frame.WriteByte('\n')

	if _, err := c.writer.Write(frame.Bytes()); err != nil {
		c.closed = true
		c.log.Warn("sse send failed", "error", err)
		return err
	}
	c.flusher.Flush()
	c.sent++
	c.last = time.Now().UTC()
	return nil
}

// Heartbeat emits a comment frame to keep the connection alive.
func (c *SSEClient) Heartbeat() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return io.EOF
	}
	if _, err := io.WriteString(c.writer, ": ping\n\n"); err != nil {
		c.closed = true
		c.log.Warn("sse heartbeat failed", "error", err)
		return err
	}
	c.flusher.Flush()
	c.last = time.Now().UTC()
	return nil
}

// Close marks the stream as closed.
func (c *SSEClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Sent reports how many events were written.
func (c *SSEClient) Sent() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent
}

// LastActivity reports the timestamp of the most recent successful write.
func (c *SSEClient) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
