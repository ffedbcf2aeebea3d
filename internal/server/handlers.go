package server

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Tyrowin/roomchat/internal/session"
)

//go:embed static/index.html
var indexPage []byte

// connectRequest resolves the chat query parameters against the configured
// defaults. Supplied values are used verbatim; only a missing or empty value
// takes the default. Only the exact string "true" asks for room creation.
func (s *Server) connectRequest(r *http.Request) session.Request {
	q := r.URL.Query()
	req := session.Request{
		Username: q.Get("user"),
		Room:     q.Get("room_name"),
		Create:   q.Get("create") == "true",
	}
	if req.Username == "" {
		req.Username = s.cfg.DefaultUsername
	}
	if req.Room == "" {
		req.Room = s.cfg.DefaultRoom
	}
	return req
}

// handleWebSocket upgrades the request and serves the chat session on the
// request goroutine until the connection ends.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	req := s.connectRequest(r)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	s.logger.Info("WebSocket connected", "remote", r.RemoteAddr, "user", req.Username, "room", req.Room, "create", req.Create)

	err = s.hub.Serve(conn, req)
	switch {
	case err == nil, errors.Is(err, session.ErrRoomNotFound):
	case errors.Is(err, ErrHubClosed):
		s.logger.Info("Rejected connection during shutdown", "remote", r.RemoteAddr)
	default:
		s.logger.Warn("Session ended with error", "remote", r.RemoteAddr, "error", err)
	}
}

// handleHealth reports liveness with the current room and session counts.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "roomchat server is running! rooms=%d sessions=%d", s.hub.Registry().Len(), s.hub.Sessions())
}

func (s *Server) handleRooms(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.hub.Registry().Rooms())
}

func (s *Server) handleRoom(w http.ResponseWriter, r *http.Request) {
	summary, ok := s.hub.Registry().Lookup(r.PathValue("name"))
	if !ok {
		s.writeJSON(w, http.StatusNotFound, errorBody{Error: "room not found"})
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleRoomHistory(w http.ResponseWriter, r *http.Request) {
	history, ok := s.hub.Registry().History(r.PathValue("name"))
	if !ok {
		s.writeJSON(w, http.StatusNotFound, errorBody{Error: "room not found"})
		return
	}
	s.writeJSON(w, http.StatusOK, history)
}

// handleIndex serves the built-in chat page.
func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(indexPage); err != nil {
		s.logger.Warn("Error writing HTML response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Error writing JSON response", "error", err)
	}
}
