package session

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomchat/internal/message"
)

const waitTimeout = 2 * time.Second

type inbound struct {
	typ  int
	data []byte
	err  error
}

// fakeConn is an in-memory Conn. Frames written by the session show up on
// out; frames queued with send are returned by ReadMessage.
type fakeConn struct {
	in        chan inbound
	out       chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu          sync.Mutex
	pings       int
	closeFrames int
	writeErr    error
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan inbound, 64),
		out:    make(chan []byte, 1024),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case f := <-c.in:
		return f.typ, f.data, f.err
	case <-c.closed:
		return 0, nil, net.ErrClosed
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-c.closed:
		return net.ErrClosed
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	switch messageType {
	case websocket.TextMessage:
		c.out <- append([]byte(nil), data...)
	case websocket.PingMessage:
		c.pings++
	case websocket.CloseMessage:
		c.closeFrames++
	}
	return nil
}

func (c *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (c *fakeConn) SetPongHandler(func(string) error) {}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) send(text string) {
	c.in <- inbound{typ: websocket.TextMessage, data: []byte(text)}
}

// hangUp simulates the browser closing the tab.
func (c *fakeConn) hangUp() {
	c.in <- inbound{err: &websocket.CloseError{Code: websocket.CloseGoingAway}}
}

func (c *fakeConn) failWrites(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErr = err
}

func (c *fakeConn) stats() (pings, closeFrames int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pings, c.closeFrames
}

// next returns the next text frame written to the connection.
func (c *fakeConn) next(t *testing.T) string {
	t.Helper()
	select {
	case data := <-c.out:
		return string(data)
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a frame")
		return ""
	}
}

func (c *fakeConn) expect(t *testing.T, want ...string) {
	t.Helper()
	for _, w := range want {
		require.Equal(t, w, c.next(t))
	}
}

func (c *fakeConn) nextChat(t *testing.T) message.Message {
	t.Helper()
	raw := c.next(t)
	f, err := message.Decode([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, message.KindChat, f.Kind, "frame %q", raw)
	return f.Chat
}

func (c *fakeConn) expectClosed(t *testing.T) {
	t.Helper()
	select {
	case <-c.closed:
	case <-time.After(waitTimeout):
		t.Fatal("connection was not closed")
	}
}

// quiet asserts that nothing is written for a short while.
func (c *fakeConn) quiet(t *testing.T) {
	t.Helper()
	select {
	case data := <-c.out:
		t.Fatalf("unexpected frame %q", data)
	case <-time.After(50 * time.Millisecond):
	}
}
