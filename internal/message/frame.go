package message

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Wire tags prefixed to control frames. These are shared with existing
// browser clients and must not change.
const (
	TagUsers     = "__users__"
	TagTyping    = "__typing__"
	TagRoomEnded = "__room_ended__"
	TagNewAdmin  = "__new_admin__"
)

// EndRoomCommand is the text an admin sends to close their room.
const EndRoomCommand = "/end"

// ErrUnknownFrame is returned by Decode for input that is neither a chat
// message nor a tagged control frame and cannot be treated as a notice.
var ErrUnknownFrame = errors.New("unknown frame")

// Kind identifies the variant held by a Frame.
type Kind int

// Frame kinds, one per outbound message shape.
const (
	KindChat Kind = iota
	KindRoster
	KindTyping
	KindRoomEnded
	KindNewAdmin
	KindNotice
)

func (k Kind) String() string {
	switch k {
	case KindChat:
		return "chat"
	case KindRoster:
		return "roster"
	case KindTyping:
		return "typing"
	case KindRoomEnded:
		return "room_ended"
	case KindNewAdmin:
		return "new_admin"
	case KindNotice:
		return "notice"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// RosterEntry describes one room member in a roster update.
type RosterEntry struct {
	Username string `json:"username"`
	Admin    bool   `json:"admin"`
}

// Frame is an outbound message before it is turned into wire text. Only the
// fields relevant to Kind are set.
type Frame struct {
	Kind   Kind
	Chat   Message
	Roster []RosterEntry
	// User is the subject of Typing and NewAdmin frames.
	User string
	// Text is the body of a Notice.
	Text string
}

// Chat wraps a chat message.
func Chat(m Message) Frame { return Frame{Kind: KindChat, Chat: m} }

// Roster wraps the current member list of a room.
func Roster(entries []RosterEntry) Frame {
	return Frame{Kind: KindRoster, Roster: entries}
}

// Typing tells other members that username is typing.
func Typing(username string) Frame { return Frame{Kind: KindTyping, User: username} }

// RoomEnded tells members that the admin closed the room.
func RoomEnded() Frame { return Frame{Kind: KindRoomEnded} }

// NewAdmin announces the member that now administers the room.
func NewAdmin(username string) Frame { return Frame{Kind: KindNewAdmin, User: username} }

// Notice is a human-readable line for display only.
func Notice(text string) Frame { return Frame{Kind: KindNotice, Text: text} }

// JoinNotice is broadcast when username enters room.
func JoinNotice(username, room string) Frame {
	return Notice(fmt.Sprintf("✅ %s joined '%s'", username, room))
}

// LeaveNotice is broadcast when username leaves room.
func LeaveNotice(username, room string) Frame {
	return Notice(fmt.Sprintf("⚠️ %s left '%s'", username, room))
}

// NotFoundNotice is sent to a client that asked to join a missing room.
func NotFoundNotice() Frame { return Notice("❌ Room not found") }

// Encode renders the frame in its wire representation.
func (f Frame) Encode() ([]byte, error) {
	switch f.Kind {
	case KindChat:
		data, err := marshal(f.Chat)
		if err != nil {
			return nil, fmt.Errorf("encode chat message: %w", err)
		}
		return data, nil
	case KindRoster:
		entries := f.Roster
		if entries == nil {
			entries = []RosterEntry{}
		}
		data, err := marshal(entries)
		if err != nil {
			return nil, fmt.Errorf("encode roster: %w", err)
		}
		return append([]byte(TagUsers), data...), nil
	case KindTyping:
		return []byte(TagTyping + f.User), nil
	case KindRoomEnded:
		return []byte(TagRoomEnded), nil
	case KindNewAdmin:
		return []byte(TagNewAdmin + f.User), nil
	case KindNotice:
		return []byte(f.Text), nil
	default:
		return nil, fmt.Errorf("encode %s: %w", f.Kind, ErrUnknownFrame)
	}
}

// Decode parses wire text produced by Encode. Text that is neither tagged nor
// a chat JSON object is returned as a Notice.
func Decode(data []byte) (Frame, error) {
	text := string(data)
	switch {
	case text == TagRoomEnded:
		return RoomEnded(), nil
	case strings.HasPrefix(text, TagUsers):
		var entries []RosterEntry
		if err := json.Unmarshal([]byte(strings.TrimPrefix(text, TagUsers)), &entries); err != nil {
			return Frame{}, fmt.Errorf("decode roster: %w", err)
		}
		return Roster(entries), nil
	case strings.HasPrefix(text, TagTyping):
		return Typing(strings.TrimPrefix(text, TagTyping)), nil
	case strings.HasPrefix(text, TagNewAdmin):
		return NewAdmin(strings.TrimPrefix(text, TagNewAdmin)), nil
	case strings.HasPrefix(text, "{"):
		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			return Frame{}, fmt.Errorf("decode chat message: %w", err)
		}
		return Chat(m), nil
	case text == "":
		return Frame{}, ErrUnknownFrame
	default:
		return Notice(text), nil
	}
}

// marshal is json.Marshal without HTML escaping, so text like "a<b & c>d"
// reaches clients byte for byte.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
