package server_test

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Tyrowin/roomchat/internal/message"
	"github.com/Tyrowin/roomchat/internal/testhelpers"
)

func TestLobbyOverWebSocket(t *testing.T) {
	srv, ts := startServer(t, testConfig())

	alice := testhelpers.Join(t, ts, "alice", "lobby", true)
	testhelpers.ExpectText(t, alice, "✅ alice joined 'lobby'", `__users__[{"username":"alice","admin":true}]`)

	testhelpers.SendText(t, alice, "hi")
	hi := testhelpers.ReadChat(t, alice)
	assert.Equal(t, "alice", hi.Username)
	assert.Equal(t, "lobby", hi.Room)
	assert.True(t, hi.Admin)

	bob := testhelpers.Join(t, ts, "bob", "lobby", false)
	assert.Equal(t, hi, testhelpers.ReadChat(t, bob))
	roster := `__users__[{"username":"alice","admin":true},{"username":"bob","admin":false}]`
	testhelpers.ExpectText(t, bob, "✅ bob joined 'lobby'", roster)
	testhelpers.ExpectText(t, alice, "✅ bob joined 'lobby'", roster)

	testhelpers.SendText(t, alice, "/end")
	testhelpers.ExpectText(t, alice, "__room_ended__")
	testhelpers.ExpectText(t, bob, "__room_ended__")

	for _, conn := range []*websocket.Conn{alice, bob} {
		err := testhelpers.ExpectClose(t, conn)
		assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	}

	require.Eventually(t, func() bool {
		return srv.Hub().Sessions() == 0
	}, time.Second, 10*time.Millisecond)
	assert.Zero(t, srv.Registry().Len())

	carol := testhelpers.Join(t, ts, "carol", "lobby", false)
	testhelpers.ExpectText(t, carol, "❌ Room not found")
	err := testhelpers.ExpectClose(t, carol)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestAdminLeavesOverWebSocket(t *testing.T) {
	srv, ts := startServer(t, testConfig())

	alice := testhelpers.Join(t, ts, "alice", "lobby", true)
	testhelpers.ExpectText(t, alice, "✅ alice joined 'lobby'", `__users__[{"username":"alice","admin":true}]`)
	bob := testhelpers.Join(t, ts, "bob", "lobby", false)
	testhelpers.ExpectText(t, bob, "✅ bob joined 'lobby'")
	testhelpers.ReadText(t, bob)

	require.NoError(t, testhelpers.CloseWebSocket(alice))

	testhelpers.ExpectText(t, bob,
		"⚠️ alice left 'lobby'",
		`__users__[{"username":"bob","admin":true}]`,
		"__new_admin__bob",
	)

	s, ok := srv.Registry().Lookup("lobby")
	require.True(t, ok)
	assert.Equal(t, "bob", s.Admin)
}

func TestConnectDefaults(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultUsername = "Visitor"
	cfg.DefaultRoom = "hall"
	_, ts := startServer(t, cfg)

	// no query at all: join-only on the default room, which does not exist
	anon := testhelpers.Join(t, ts, "", "", false)
	testhelpers.ExpectText(t, anon, "❌ Room not found")

	// create flag only honoured for the exact string "true"
	conn, _, err := testhelpers.ConnectWebSocket(testhelpers.ChatURL(ts, "", "", false) + "?create=TRUE")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	testhelpers.ExpectText(t, conn, "❌ Room not found")

	guest := testhelpers.Join(t, ts, "", "", true)
	testhelpers.ExpectText(t, guest, "✅ Visitor joined 'hall'", `__users__[{"username":"Visitor","admin":true}]`)
}

func TestOriginRejected(t *testing.T) {
	_, ts := startServer(t, testConfig())

	for _, origin := range []string{"", "http://evil.example", "not-a-url"} {
		t.Run(fmt.Sprintf("origin %q", origin), func(t *testing.T) {
			conn, status, err := testhelpers.ConnectWebSocketWithOrigin(testhelpers.ChatURL(ts, "mallory", "lobby", true), origin)
			if err == nil {
				_ = conn.Close()
				t.Fatal("expected the handshake to fail")
			}
			assert.Equal(t, http.StatusForbidden, status)
		})
	}
}

func TestTypingOverWebSocket(t *testing.T) {
	_, ts := startServer(t, testConfig())

	alice := testhelpers.Join(t, ts, "alice", "lobby", true)
	testhelpers.ExpectText(t, alice, "✅ alice joined 'lobby'")
	testhelpers.ReadText(t, alice)
	bob := testhelpers.Join(t, ts, "bob", "lobby", false)
	testhelpers.ExpectText(t, bob, "✅ bob joined 'lobby'")
	testhelpers.ReadText(t, bob)
	testhelpers.ExpectText(t, alice, "✅ bob joined 'lobby'")
	testhelpers.ReadText(t, alice)

	testhelpers.SendText(t, alice, "__typing__")
	f := testhelpers.ReadFrame(t, bob)
	assert.Equal(t, message.KindTyping, f.Kind)
	assert.Equal(t, "alice", f.User)

	testhelpers.SendText(t, alice, "sent")
	assert.Equal(t, "sent", testhelpers.ReadChat(t, alice).Text, "sender never sees its own typing notice")
}

func TestConcurrentRoomsStayIsolated(t *testing.T) {
	srv, ts := startServer(t, testConfig())

	const rooms = 4
	const perRoom = 20

	var g errgroup.Group
	for i := 0; i < rooms; i++ {
		name := fmt.Sprintf("room-%d", i)
		g.Go(func() error {
			conn, _, err := testhelpers.ConnectWebSocket(testhelpers.ChatURL(ts, "owner", name, true))
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()

			for j := 0; j < perRoom; j++ {
				if err := conn.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf("%s/%d", name, j))); err != nil {
					return err
				}
			}

			seen := 0
			for seen < perRoom {
				if err := conn.SetReadDeadline(time.Now().Add(testhelpers.ReadTimeout)); err != nil {
					return err
				}
				_, data, err := conn.ReadMessage()
				if err != nil {
					return err
				}
				f, err := message.Decode(data)
				if err != nil {
					return err
				}
				if f.Kind != message.KindChat {
					continue
				}
				if want := fmt.Sprintf("%s/%d", name, seen); f.Chat.Text != want || f.Chat.Room != name {
					return fmt.Errorf("got %q in %s, want %q", f.Chat.Text, f.Chat.Room, want)
				}
				seen++
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Eventually(t, func() bool {
		return srv.Registry().Len() == 0
	}, time.Second, 10*time.Millisecond, "rooms are reaped once their owners leave")
}

func TestHubShutdownClosesSessions(t *testing.T) {
	srv, ts := startServer(t, testConfig())

	const clients = 5
	conns := make([]*websocket.Conn, 0, clients)
	for i := 0; i < clients; i++ {
		conn := testhelpers.Join(t, ts, fmt.Sprintf("user%d", i), "lobby", i == 0)
		testhelpers.ReadText(t, conn) // own join notice
		conns = append(conns, conn)
	}
	require.Eventually(t, func() bool {
		return srv.Hub().Sessions() == clients
	}, time.Second, 10*time.Millisecond)

	var wg sync.WaitGroup
	wg.Add(1)
	var shutdownErr error
	go func() {
		defer wg.Done()
		shutdownErr = srv.Hub().Shutdown(2 * time.Second)
	}()

	for _, conn := range conns {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(testhelpers.ReadTimeout)))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}

	wg.Wait()
	require.NoError(t, shutdownErr)
	assert.Zero(t, srv.Hub().Sessions())
	assert.Zero(t, srv.Registry().Len())

	// late connections are turned away
	late, _, err := testhelpers.ConnectWebSocket(testhelpers.ChatURL(ts, "late", "lobby", true))
	require.NoError(t, err, "the upgrade itself still succeeds")
	defer func() { _ = late.Close() }()
	_ = late.SetReadDeadline(time.Now().Add(testhelpers.ReadTimeout))
	_, _, err = late.ReadMessage()
	require.Error(t, err)
	assert.False(t, strings.Contains(err.Error(), "timeout"), "server closed the connection: %v", err)
}
