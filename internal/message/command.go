package message

import "strings"

// Command is the action an inbound text frame asks for.
type Command int

const (
	// CommandChat is ordinary chat text, relayed verbatim.
	CommandChat Command = iota
	// CommandTyping is a typing indicator; the payload after the tag is ignored.
	CommandTyping
	// CommandEndRoom asks to close the room. Only honoured for the admin.
	CommandEndRoom
)

func (c Command) String() string {
	switch c {
	case CommandTyping:
		return "typing"
	case CommandEndRoom:
		return "end_room"
	default:
		return "chat"
	}
}

// Classify maps inbound text to a command. The end-room literal wins over the
// typing tag, which wins over chat.
func Classify(text string) Command {
	switch {
	case text == EndRoomCommand:
		return CommandEndRoom
	case strings.HasPrefix(text, TagTyping):
		return CommandTyping
	default:
		return CommandChat
	}
}
