package session

import "fmt"

// State is a stage of a connection's life.
type State int

// Session states in the order a connection moves through them. A session may
// skip straight from Joining or Active to Closed.
const (
	StateConnecting State = iota
	StateJoining
	StateActive
	StateLeaving
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateJoining:
		return "joining"
	case StateActive:
		return "active"
	case StateLeaving:
		return "leaving"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
