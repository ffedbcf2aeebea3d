// Package session runs the per-connection control loop of the chat relay:
// joining or creating a room, replaying its history, relaying inbound frames
// as room actions, delivering queued frames to the connection, and cleaning
// up on departure.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Tyrowin/roomchat/internal/room"
)

// ErrRoomNotFound is returned by Serve when the requested room does not exist
// and creation was not requested.
var ErrRoomNotFound = errors.New("room not found")

// Request carries the resolved connection parameters.
type Request struct {
	Username string
	Room     string
	Create   bool
}

// Options tune connection keepalive. Zero values disable the respective
// deadline or ping.
type Options struct {
	// PingInterval is how often the delivery task pings the peer.
	PingInterval time.Duration
	// PongWait bounds how long a read may wait; every pong extends it.
	PongWait time.Duration
	// WriteWait bounds a single frame write.
	WriteWait time.Duration
	// OnTransition, if set, is called synchronously on every state change.
	OnTransition func(sessionID string, from, to State)
}

// Coordinator serves chat connections against a shared room registry.
type Coordinator struct {
	registry *room.Registry
	opts     Options
	logger   *slog.Logger
}

// NewCoordinator returns a coordinator bound to registry. A nil logger
// discards output.
func NewCoordinator(registry *room.Registry, logger *slog.Logger, opts Options) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Coordinator{
		registry: registry,
		opts:     opts,
		logger:   logger,
	}
}

// Registry returns the registry sessions are served against.
func (c *Coordinator) Registry() *room.Registry {
	return c.registry
}

// Serve runs one connection to completion. It returns once both the inbound
// loop and the delivery task have stopped and conn is closed. Cancelling ctx
// closes the connection, which ends the session through the normal departure
// path.
func (c *Coordinator) Serve(ctx context.Context, conn Conn, req Request) error {
	s := c.newSession(conn, req)

	stop := context.AfterFunc(ctx, s.closeConn)
	defer stop()

	var g errgroup.Group
	g.Go(func() error {
		return s.deliver(ctx)
	})

	s.transition(StateJoining)
	joined := s.join()
	if joined {
		s.transition(StateActive)
		if ended := s.run(); !ended {
			s.transition(StateLeaving)
			s.leave()
		}
	}

	s.outbox.Close()
	err := g.Wait()
	s.closeConn()
	s.transition(StateClosed)

	if !joined {
		return ErrRoomNotFound
	}
	if err != nil && !isExpectedCloseError(err) && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (c *Coordinator) newSession(conn Conn, req Request) *session {
	id := uuid.NewString()
	return &session{
		id:       id,
		username: req.Username,
		roomName: req.Room,
		create:   req.Create,
		conn:     conn,
		outbox:   room.NewOutbox(),
		registry: c.registry,
		opts:     c.opts,
		state:    StateConnecting,
		logger:   c.logger.With("session", id, "user", req.Username, "room", req.Room),
	}
}

type session struct {
	id       string
	username string
	roomName string
	create   bool

	conn      Conn
	outbox    *room.Outbox
	registry  *room.Registry
	opts      Options
	logger    *slog.Logger
	closeOnce sync.Once

	state State
}

func (s *session) transition(to State) {
	from := s.state
	s.state = to
	s.logger.Debug("Session state changed", "from", from, "to", to)
	if s.opts.OnTransition != nil {
		s.opts.OnTransition(s.id, from, to)
	}
}

func (s *session) closeConn() {
	s.closeOnce.Do(func() {
		if err := s.conn.Close(); err != nil && !isExpectedCloseError(err) {
			s.logger.Warn("Error closing connection", "error", err)
		}
	})
}
