package server

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomchat/internal/logging"
	"github.com/Tyrowin/roomchat/internal/session"
)

// closeFailingConn is a connection that is only ever closed.
type closeFailingConn struct {
	session.Conn
	closed int
}

func (c *closeFailingConn) Close() error {
	c.closed++
	return errors.New("close failed")
}

func TestHubServeAfterShutdown(t *testing.T) {
	var buf bytes.Buffer
	hub := NewHub(logging.New("debug", "text", &buf), session.Options{})
	require.NoError(t, hub.Shutdown(time.Second))

	conn := &closeFailingConn{}
	err := hub.Serve(conn, session.Request{Username: "late", Room: "lobby", Create: true})

	assert.ErrorIs(t, err, ErrHubClosed)
	assert.Equal(t, 1, conn.closed)
	assert.Zero(t, hub.Sessions())
	assert.Zero(t, hub.Registry().Len())
	assert.Contains(t, buf.String(), `msg="Error closing rejected connection"`)
	assert.Contains(t, buf.String(), `error="close failed"`)
}
