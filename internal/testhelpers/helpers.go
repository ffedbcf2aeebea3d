// Package testhelpers provides common utilities for exercising the roomchat
// server over real HTTP and WebSocket connections in tests.
package testhelpers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomchat/internal/message"
)

// TestOrigin is the Origin header sent by ChatURL dialers. Test servers must
// allow it.
const TestOrigin = "http://localhost:8080"

// ReadTimeout bounds every read done through these helpers.
const ReadTimeout = 2 * time.Second

// AssertStatusCode fails the test if resp does not carry the expected status.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	require.Equal(t, expected, resp.StatusCode, "status code")
}

// AssertContentType fails the test if resp does not carry the expected Content-Type.
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	require.Equal(t, expected, resp.Header.Get("Content-Type"), "content type")
}

// MakeRequest executes an HTTP request with a 5-second timeout. The body is
// closed when the test ends.
func MakeRequest(t *testing.T, method, rawURL string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, rawURL, http.NoBody)
	require.NoError(t, err, "create request")

	resp, err := client.Do(req)
	require.NoError(t, err, "make request")
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// ChatURL builds the WebSocket chat URL on srv for user and room.
func ChatURL(srv *httptest.Server, user, roomName string, create bool) string {
	q := url.Values{}
	if user != "" {
		q.Set("user", user)
	}
	if roomName != "" {
		q.Set("room_name", roomName)
	}
	if create {
		q.Set("create", "true")
	}
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	if len(q) == 0 {
		return base
	}
	return base + "?" + q.Encode()
}

// ConnectWebSocket dials rawURL with TestOrigin. It returns the handshake
// response status alongside any error.
func ConnectWebSocket(rawURL string) (*websocket.Conn, int, error) {
	return ConnectWebSocketWithOrigin(rawURL, TestOrigin)
}

// ConnectWebSocketWithOrigin dials rawURL with the given Origin header. An
// empty origin sends none.
func ConnectWebSocketWithOrigin(rawURL, origin string) (*websocket.Conn, int, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(rawURL, headers)
	status := 0
	if resp != nil {
		status = resp.StatusCode
		_ = resp.Body.Close()
	}
	return conn, status, err
}

// Join connects to the chat endpoint and fails the test on error. The
// connection is closed when the test ends.
func Join(t *testing.T, srv *httptest.Server, user, roomName string, create bool) *websocket.Conn {
	t.Helper()
	conn, _, err := ConnectWebSocket(ChatURL(srv, user, roomName, create))
	require.NoError(t, err, "join %s as %s", roomName, user)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendText writes one text frame.
func SendText(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(text)))
}

// ReadText reads the next text frame within ReadTimeout.
func ReadText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(ReadTimeout)))
	msgType, data, err := conn.ReadMessage()
	require.NoError(t, err, "read frame")
	require.Equal(t, websocket.TextMessage, msgType)
	return string(data)
}

// ReadFrame reads and decodes the next frame.
func ReadFrame(t *testing.T, conn *websocket.Conn) message.Frame {
	t.Helper()
	raw := ReadText(t, conn)
	f, err := message.Decode([]byte(raw))
	require.NoError(t, err, "decode %q", raw)
	return f
}

// ExpectText reads frames and requires them to equal want, in order.
func ExpectText(t *testing.T, conn *websocket.Conn, want ...string) {
	t.Helper()
	for _, w := range want {
		require.Equal(t, w, ReadText(t, conn))
	}
}

// ReadChat reads the next frame and requires it to be a chat message.
func ReadChat(t *testing.T, conn *websocket.Conn) message.Message {
	t.Helper()
	f := ReadFrame(t, conn)
	require.Equal(t, message.KindChat, f.Kind, "expected a chat frame, got %s", f.Kind)
	return f.Chat
}

// ExpectClose reads until the server closes the connection and returns the
// close error.
func ExpectClose(t *testing.T, conn *websocket.Conn) error {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(ReadTimeout)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return err
		}
	}
}

// CloseWebSocket sends a normal close frame and closes conn.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}
