package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/roomchat/internal/room"
	"github.com/Tyrowin/roomchat/internal/session"
)

// Server bundles the hub with its HTTP surface.
type Server struct {
	cfg      Config
	hub      *Hub
	origins  *originPolicy
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// New builds a server from cfg, which is sanitized first. A nil logger
// discards output.
func New(cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cfg = cfg.Sanitize()

	s := &Server{
		cfg: cfg,
		hub: NewHub(logger, session.Options{
			PingInterval: cfg.PingInterval,
			PongWait:     cfg.PongWait,
			WriteWait:    cfg.WriteWait,
		}),
		origins: newOriginPolicy(cfg.AllowedOrigins, logger.With("component", "origin")),
		logger:  logger.With("component", "http"),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.checkOrigin,
	}
	return s
}

// Config returns the sanitized configuration in use.
func (s *Server) Config() Config {
	return s.cfg
}

// Hub returns the session hub, for shutdown coordination.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Registry returns the room registry.
func (s *Server) Registry() *room.Registry {
	return s.hub.Registry()
}

// Handler returns the HTTP handler with all routes mounted.
func (s *Server) Handler() http.Handler {
	return s.routes()
}
