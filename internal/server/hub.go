package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Tyrowin/roomchat/internal/room"
	"github.com/Tyrowin/roomchat/internal/session"
)

// ErrHubClosed is returned by Hub.Serve once shutdown has begun.
var ErrHubClosed = errors.New("hub is shut down")

// Hub owns the room registry and tracks every live session so shutdown can
// close them and wait for their cleanup.
type Hub struct {
	registry *room.Registry
	coord    *session.Coordinator
	logger   *slog.Logger

	mutex    sync.Mutex
	sessions int
	closed   bool
	wg       sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a hub with an empty registry.
func NewHub(logger *slog.Logger, opts session.Options) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	registry := room.NewRegistry(logger)
	return &Hub{
		registry: registry,
		coord:    session.NewCoordinator(registry, logger, opts),
		logger:   logger.With("component", "hub"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Registry returns the room registry.
func (h *Hub) Registry() *room.Registry {
	return h.registry
}

// Sessions returns the number of connections currently being served.
func (h *Hub) Sessions() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.sessions
}

// Serve runs a session for conn and blocks until it ends. After Shutdown it
// closes conn immediately and returns ErrHubClosed.
func (h *Hub) Serve(conn session.Conn, req session.Request) error {
	h.mutex.Lock()
	if h.closed {
		h.mutex.Unlock()
		if err := conn.Close(); err != nil {
			h.logger.Debug("Error closing rejected connection", "user", req.Username, "error", err)
		}
		return ErrHubClosed
	}
	h.sessions++
	count := h.sessions
	h.wg.Add(1)
	h.mutex.Unlock()

	h.logger.Debug("Session started", "user", req.Username, "room", req.Room, "sessions", count)

	defer func() {
		h.mutex.Lock()
		h.sessions--
		count := h.sessions
		h.mutex.Unlock()
		h.wg.Done()
		h.logger.Debug("Session finished", "user", req.Username, "room", req.Room, "sessions", count)
	}()

	return h.coord.Serve(h.ctx, conn, req)
}

// Shutdown stops accepting sessions, closes every live connection and waits
// for their departure cleanup. It returns context.DeadlineExceeded when
// sessions are still running after timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.mutex.Lock()
	h.closed = true
	active := h.sessions
	h.mutex.Unlock()

	h.logger.Info("Initiating hub shutdown", "sessions", active)
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("Hub shutdown completed", "rooms", h.registry.Len())
		return nil
	case <-time.After(timeout):
		h.logger.Warn("Hub shutdown timeout reached, some sessions may still be running", "sessions", h.Sessions())
		return context.DeadlineExceeded
	}
}
