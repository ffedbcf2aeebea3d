// Package room holds the process-wide room registry and the per-room
// membership and history state. Room values are only reachable through the
// registry, which serializes every access behind one lock.
package room

import (
	"slices"
	"time"

	"github.com/Tyrowin/roomchat/internal/message"
)

// Client is one connected session inside a room.
type Client struct {
	// ID identifies the connection. Usernames are not unique.
	ID       string
	Username string
	Outbox   *Outbox
}

// Room is a named chat room. Its methods assume the registry lock is held;
// they are only called from callbacks passed to WithRoom and friends.
type Room struct {
	name      string
	admin     string
	clients   []*Client
	history   []message.Message
	createdAt time.Time
	closed    bool
}

func newRoom(name, admin string) *Room {
	return &Room{
		name:      name,
		admin:     admin,
		createdAt: time.Now(),
	}
}

// Name returns the room name.
func (r *Room) Name() string { return r.name }

// Admin returns the username of the current admin.
func (r *Room) Admin() string { return r.admin }

// IsAdmin reports whether username administers the room.
func (r *Room) IsAdmin(username string) bool { return r.admin == username }

// CreatedAt returns when the room was created.
func (r *Room) CreatedAt() time.Time { return r.createdAt }

// Len returns the number of connected clients.
func (r *Room) Len() int { return len(r.clients) }

// Empty reports whether the room has no clients left.
func (r *Room) Empty() bool { return len(r.clients) == 0 }

// Add appends c to the member list. Duplicate usernames are allowed.
func (r *Room) Add(c *Client) {
	r.clients = append(r.clients, c)
}

// Remove drops the client with the given connection ID. Removing an unknown
// ID is a no-op and reports false. The room closes once its last client is
// gone.
func (r *Room) Remove(id string) (*Client, bool) {
	i := slices.IndexFunc(r.clients, func(c *Client) bool { return c.ID == id })
	if i < 0 {
		return nil, false
	}
	c := r.clients[i]
	r.clients = slices.Delete(r.clients, i, i+1)
	if len(r.clients) == 0 {
		r.closed = true
	}
	return c, true
}

// Has reports whether any client uses username.
func (r *Room) Has(username string) bool {
	return slices.ContainsFunc(r.clients, func(c *Client) bool { return c.Username == username })
}

// HandOff moves the admin role to the first remaining client when departing
// held it and nobody else with that name is still present. It returns the
// new admin and whether the role moved.
func (r *Room) HandOff(departing string) (string, bool) {
	if r.admin != departing || len(r.clients) == 0 || r.Has(departing) {
		return "", false
	}
	r.admin = r.clients[0].Username
	return r.admin, true
}

// Append adds m to the end of the room history.
func (r *Room) Append(m message.Message) {
	r.history = append(r.history, m)
}

// History returns a copy of the room history in arrival order.
func (r *Room) History() []message.Message {
	return slices.Clone(r.history)
}

// HistoryLen returns the number of stored messages.
func (r *Room) HistoryLen() int { return len(r.history) }

// Roster lists the members in join order with their admin flag.
func (r *Room) Roster() []message.RosterEntry {
	entries := make([]message.RosterEntry, 0, len(r.clients))
	for _, c := range r.clients {
		entries = append(entries, message.RosterEntry{
			Username: c.Username,
			Admin:    c.Username == r.admin,
		})
	}
	return entries
}

// Recipients returns the outboxes of every client except the one with
// exceptID. Pass an empty ID to include everyone.
func (r *Room) Recipients(exceptID string) []*Outbox {
	out := make([]*Outbox, 0, len(r.clients))
	for _, c := range r.clients {
		if exceptID != "" && c.ID == exceptID {
			continue
		}
		out = append(out, c.Outbox)
	}
	return out
}

// End closes the room. The registry drops closed rooms before releasing its
// lock, so no later operation can observe it.
func (r *Room) End() {
	r.closed = true
}

// Closed reports whether the room was ended or emptied.
func (r *Room) Closed() bool { return r.closed }
