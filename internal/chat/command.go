package chat

import (
	"strconv"
	"strings"
	"unicode"
)

// CommandKind tags the variants produced by ParseMenuCommand and
// ParseChatCommand.
type CommandKind int

const (
	CommandEcho CommandKind = iota
	CommandListUsers
	CommandListRooms
	CommandCreateRoom
	CommandEnterRoom
	CommandQuit
	CommandLeaveRoom
	CommandSay
	CommandPrivate
	CommandFile
	CommandBackToMenu
	CommandUsageError
)

func (k CommandKind) String() string {
	switch k {
	case CommandEcho:
		return "echo"
	case CommandListUsers:
		return "list-users"
	case CommandListRooms:
		return "list-rooms"
	case CommandCreateRoom:
		return "create-room"
	case CommandEnterRoom:
		return "enter-room"
	case CommandQuit:
		return "quit"
	case CommandLeaveRoom:
		return "leave-room"
	case CommandSay:
		return "say"
	case CommandPrivate:
		return "private"
	case CommandFile:
		return "file"
	case CommandBackToMenu:
		return "back-to-menu"
	case CommandUsageError:
		return "usage-error"
	default:
		return "unknown"
	}
}

// Command is one parsed input line. Only the fields relevant to Kind are set.
type Command struct {
	Kind CommandKind

	// Text is the echoed line, the chat text, or the private message body.
	Text string

	// TargetID is the recipient of a private message.
	TargetID int

	FileName string
	Payload  string

	// Usage is the error line returned for CommandUsageError.
	Usage string
}

const (
	privPrefix = "/priv "
	filePrefix = "/file "
	menuWord   = "MEN0"
)

// ParseMenuCommand parses a line received while the connection sits at the
// main menu.
func ParseMenuCommand(line string) Command {
	switch {
	case line == "1":
		return Command{Kind: CommandListUsers}
	case line == "2":
		return Command{Kind: CommandListRooms}
	case line == "3":
		return Command{Kind: CommandCreateRoom}
	case line == "4":
		return Command{Kind: CommandEnterRoom}
	case line == "5", strings.EqualFold(line, "salir"):
		return Command{Kind: CommandQuit}
	case line == "6":
		return Command{Kind: CommandLeaveRoom}
	default:
		return Command{Kind: CommandEcho, Text: line}
	}
}

// ParseChatCommand parses a line received inside a room.
func ParseChatCommand(line string) Command {
	lower := strings.ToLower(line)
	switch {
	case strings.HasPrefix(lower, privPrefix):
		return parsePrivate(line[len(privPrefix):])
	case strings.HasPrefix(lower, filePrefix):
		return parseFile(line[len(filePrefix):])
	case strings.EqualFold(strings.TrimSpace(line), menuWord):
		return Command{Kind: CommandBackToMenu}
	default:
		return Command{Kind: CommandSay, Text: line}
	}
}

func parsePrivate(rest string) Command {
	target, text, ok := splitFirstField(strings.TrimSpace(rest))
	if !ok {
		return Command{Kind: CommandUsageError, Usage: privUsage}
	}
	id, err := strconv.Atoi(target)
	if err != nil {
		return Command{Kind: CommandUsageError, Usage: privFormatError}
	}
	return Command{Kind: CommandPrivate, TargetID: id, Text: text}
}

func parseFile(rest string) Command {
	name, payload, ok := splitFirstField(strings.TrimSpace(rest))
	if !ok {
		return Command{Kind: CommandUsageError, Usage: fileUsage}
	}
	return Command{Kind: CommandFile, FileName: strings.TrimSpace(name), Payload: strings.TrimSpace(payload)}
}

// splitFirstField splits s at its first whitespace run. ok is false when s
// holds a single field.
func splitFirstField(s string) (head, tail string, ok bool) {
	idx := strings.IndexFunc(s, unicode.IsSpace)
	if idx < 0 {
		return s, "", false
	}
	return s[:idx], strings.TrimLeftFunc(s[idx:], unicode.IsSpace), true
}
