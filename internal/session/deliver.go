package session

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// deliver is the only writer on the connection. It flushes the outbox one
// text frame per queued payload, keeps the peer alive with pings, and sends
// a close frame once the outbox is closed and empty.
func (s *session) deliver(ctx context.Context) error {
	var tick <-chan time.Time
	if s.opts.PingInterval > 0 {
		ticker := time.NewTicker(s.opts.PingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-s.outbox.Ready():
			frames, closed := s.outbox.Drain()
			for _, payload := range frames {
				if err := s.write(websocket.TextMessage, payload); err != nil {
					s.closeConn()
					return fmt.Errorf("write frame: %w", err)
				}
			}
			if closed {
				err := s.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				s.closeConn()
				if err != nil && !isExpectedCloseError(err) {
					return fmt.Errorf("write close: %w", err)
				}
				return nil
			}
		case <-tick:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				s.closeConn()
				return fmt.Errorf("write ping: %w", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *session) write(messageType int, data []byte) error {
	if s.opts.WriteWait > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteWait)); err != nil {
			return err
		}
	}
	return s.conn.WriteMessage(messageType, data)
}
