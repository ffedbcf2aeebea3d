package room

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Tyrowin/roomchat/internal/message"
)

// Registry maps room names to rooms. A single mutex guards the map and every
// room it holds; callers reach room state only through WithRoom and
// WithRoomOrCreate and must never block on I/O inside those callbacks.
type Registry struct {
	mu     sync.Mutex
	rooms  map[string]*Room
	logger *slog.Logger
}

// Summary is a point-in-time copy of a room's public state.
type Summary struct {
	Name      string                `json:"name"`
	Admin     string                `json:"admin"`
	Members   []message.RosterEntry `json:"members"`
	Messages  int                   `json:"messages"`
	CreatedAt time.Time             `json:"created_at"`
}

// NewRegistry returns an empty registry. A nil logger discards output.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		rooms:  make(map[string]*Room),
		logger: logger.With("component", "registry"),
	}
}

// CreateIfAbsent adds an empty room administered by creator unless name is
// taken. It reports whether a room was created.
func (r *Registry) CreateIfAbsent(name, creator string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createLocked(name, creator)
}

// Remove deletes the room unconditionally. Removing a missing room is a no-op.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(name, "removed")
}

// WithRoom runs fn on the named room while holding the registry lock and
// returns its result. ok is false when the room does not exist.
func WithRoom[R any](r *Registry, name string, fn func(*Room) R) (result R, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, exists := r.rooms[name]
	if !exists {
		return result, false
	}
	defer r.reapLocked(rm)
	return fn(rm), true
}

// WithRoomOrCreate is WithRoom for joins: when create is set and the name is
// free, the room is first created with creator as admin. Creation, lookup and
// fn form one critical section.
func WithRoomOrCreate[R any](r *Registry, name, creator string, create bool, fn func(rm *Room, created bool) R) (result R, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := create && r.createLocked(name, creator)
	rm, exists := r.rooms[name]
	if !exists {
		return result, false
	}
	defer r.reapLocked(rm)
	return fn(rm, created), true
}

// Len returns the number of live rooms.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// Rooms returns summaries of all live rooms sorted by name.
func (r *Registry) Rooms() []Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Summary, 0, len(r.rooms))
	for _, rm := range r.rooms {
		out = append(out, summarize(rm))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns a summary of the named room.
func (r *Registry) Lookup(name string) (Summary, bool) {
	return WithRoom(r, name, summarize)
}

// History returns a copy of the named room's messages.
func (r *Registry) History(name string) ([]message.Message, bool) {
	return WithRoom(r, name, (*Room).History)
}

func summarize(rm *Room) Summary {
	return Summary{
		Name:      rm.name,
		Admin:     rm.admin,
		Members:   rm.Roster(),
		Messages:  len(rm.history),
		CreatedAt: rm.createdAt,
	}
}

func (r *Registry) createLocked(name, creator string) bool {
	if _, exists := r.rooms[name]; exists {
		return false
	}
	r.rooms[name] = newRoom(name, creator)
	r.logger.Info("Room created", "room", name, "admin", creator, "rooms", len(r.rooms))
	return true
}

// reapLocked drops rm if a callback ended or emptied it. Only the exact room
// instance is removed, so a same-named successor is never touched.
func (r *Registry) reapLocked(rm *Room) {
	if !rm.closed || r.rooms[rm.name] != rm {
		return
	}
	reason := "ended"
	if rm.Empty() {
		reason = "empty"
	}
	r.removeLocked(rm.name, reason)
}

func (r *Registry) removeLocked(name, reason string) {
	if _, exists := r.rooms[name]; !exists {
		return
	}
	delete(r.rooms, name)
	r.logger.Info("Room removed", "room", name, "reason", reason, "rooms", len(r.rooms))
}
