package room

import (
	"fmt"

	"github.com/Tyrowin/roomchat/internal/message"
)

// Broadcast encodes f once and pushes it to every recipient. Closed outboxes
// are skipped silently; the returned count covers accepted pushes only.
func Broadcast(recipients []*Outbox, f message.Frame) (int, error) {
	if len(recipients) == 0 {
		return 0, nil
	}
	payload, err := f.Encode()
	if err != nil {
		return 0, fmt.Errorf("broadcast %s: %w", f.Kind, err)
	}

	delivered := 0
	for _, o := range recipients {
		if o.Push(payload) {
			delivered++
		}
	}
	return delivered, nil
}
