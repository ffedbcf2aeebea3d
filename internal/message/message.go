// Package message defines the chat message model and the tagged frames the
// relay writes to and reads from client connections.
package message

import "time"

// Message is a single chat line as stored in a room's history and sent to
// clients. Admin is only serialized when true so clients can tell admin
// messages apart by field presence.
type Message struct {
	Username  string `json:"username"`
	Text      string `json:"text"`
	Room      string `json:"room"`
	Admin     bool   `json:"admin,omitempty"`
	Timestamp string `json:"timestamp"`
}

// now is replaced in tests that need a fixed clock.
var now = time.Now

// New builds a regular (non-admin) message stamped with the current UTC time.
func New(username, room, text string) Message {
	return Message{
		Username:  username,
		Text:      text,
		Room:      room,
		Timestamp: now().UTC().Format(time.RFC3339Nano),
	}
}
