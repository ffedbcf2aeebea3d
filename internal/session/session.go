package session

import (
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/roomchat/internal/message"
	"github.com/Tyrowin/roomchat/internal/room"
)

// join replays history to the new client, adds it to the room and announces
// it, all inside one registry critical section so no live message can be
// queued ahead of the replay. It reports false when the room does not exist.
func (s *session) join() bool {
	client := &room.Client{ID: s.id, Username: s.username, Outbox: s.outbox}

	created, ok := room.WithRoomOrCreate(s.registry, s.roomName, s.username, s.create, func(rm *room.Room, created bool) bool {
		self := []*room.Outbox{s.outbox}
		for _, m := range rm.History() {
			s.broadcast(self, message.Chat(m))
		}
		rm.Add(client)

		everyone := rm.Recipients("")
		s.broadcast(everyone, message.JoinNotice(s.username, rm.Name()))
		s.broadcast(everyone, message.Roster(rm.Roster()))
		return created
	})
	if !ok {
		s.logger.Info("Join rejected, room not found")
		s.broadcast([]*room.Outbox{s.outbox}, message.NotFoundNotice())
		return false
	}

	s.logger.Info("Client joined", "created", created)
	return true
}

// run reads inbound frames until the connection fails, the room disappears or
// the client ends the room. It reports whether this client ended the room.
func (s *session) run() bool {
	s.setupRead()

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			s.logReadError(err)
			return false
		}
		if msgType != websocket.TextMessage {
			continue
		}

		ended, stay := s.handle(string(data))
		if ended {
			return true
		}
		if !stay {
			s.logger.Info("Room no longer exists, stopping session")
			return false
		}
	}
}

// handle applies one inbound text frame to the room. stay is false once the
// room is gone.
func (s *session) handle(text string) (ended, stay bool) {
	cmd := message.Classify(text)

	ended, stay = room.WithRoom(s.registry, s.roomName, func(rm *room.Room) bool {
		switch cmd {
		case message.CommandEndRoom:
			if rm.IsAdmin(s.username) {
				everyone := rm.Recipients("")
				s.broadcast(everyone, message.RoomEnded())
				for _, o := range everyone {
					o.Close()
				}
				rm.End()
				return true
			}
			// a non-admin "/end" is ordinary chat
			s.relayChat(rm, text)
		case message.CommandTyping:
			s.broadcast(rm.Recipients(s.id), message.Typing(s.username))
		default:
			s.relayChat(rm, text)
		}
		return false
	})

	if ended {
		s.logger.Info("Room ended by admin")
	}
	return ended, stay
}

func (s *session) relayChat(rm *room.Room, text string) {
	m := message.New(s.username, rm.Name(), text)
	m.Admin = rm.IsAdmin(s.username)
	rm.Append(m)
	s.broadcast(rm.Recipients(""), message.Chat(m))
}

// leave removes the client and tells whoever remains. The admin role moves
// on when its holder was the last connection with that name.
func (s *session) leave() {
	type outcome struct {
		removed  bool
		newAdmin string
		moved    bool
	}

	res, ok := room.WithRoom(s.registry, s.roomName, func(rm *room.Room) outcome {
		if _, removed := rm.Remove(s.id); !removed {
			return outcome{}
		}
		if rm.Empty() {
			return outcome{removed: true}
		}

		newAdmin, moved := rm.HandOff(s.username)
		everyone := rm.Recipients("")
		s.broadcast(everyone, message.LeaveNotice(s.username, rm.Name()))
		s.broadcast(everyone, message.Roster(rm.Roster()))
		if moved {
			s.broadcast(everyone, message.NewAdmin(newAdmin))
		}
		return outcome{removed: true, newAdmin: newAdmin, moved: moved}
	})
	if !ok || !res.removed {
		return
	}

	s.logger.Info("Client left")
	if res.moved {
		s.logger.Info("Admin role handed off", "admin", res.newAdmin)
	}
}

// broadcast must not block; it runs under the registry lock.
func (s *session) broadcast(recipients []*room.Outbox, f message.Frame) {
	if _, err := room.Broadcast(recipients, f); err != nil {
		s.logger.Error("Failed to queue frame", "kind", f.Kind, "error", err)
	}
}

func (s *session) setupRead() {
	if s.opts.PongWait <= 0 {
		return
	}
	if err := s.conn.SetReadDeadline(time.Now().Add(s.opts.PongWait)); err != nil {
		s.logger.Warn("Error setting initial read deadline", "error", err)
	}
	s.conn.SetPongHandler(func(string) error {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.opts.PongWait)); err != nil {
			s.logger.Warn("Error setting read deadline in pong handler", "error", err)
		}
		return nil
	})
}

func (s *session) logReadError(err error) {
	switch {
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived):
		s.logger.Info("Client disconnected", "reason", err)
	case isExpectedCloseError(err):
		s.logger.Debug("Connection closed", "reason", err)
	case errors.Is(err, websocket.ErrReadLimit):
		s.logger.Warn("Inbound frame too large", "error", err)
	default:
		s.logger.Warn("WebSocket read error", "error", err)
	}
}
