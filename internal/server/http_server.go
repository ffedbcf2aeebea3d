package server

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// CreateServer creates and configures an HTTP server with the specified port and handler.
// WriteTimeout is left unset: it would cut long-lived WebSocket sessions, whose
// writes carry their own deadline.
func CreateServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              port,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Start listens on the configured port and blocks until the HTTP server
// stops. A clean shutdown returns nil.
func (s *Server) Start(httpServer *http.Server) error {
	s.logger.Info("Server listening", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ShutdownServer gracefully shuts down the HTTP server without interrupting active connections.
// Hijacked WebSocket connections are not tracked by net/http; Hub.Shutdown
// closes those.
func (s *Server) ShutdownServer(ctx context.Context, httpServer *http.Server) error {
	s.logger.Info("Shutting down HTTP server")

	if err := httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server shutdown completed")
	return nil
}
