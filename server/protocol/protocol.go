// Package protocol defines the wire grammar of the chat relay: the command
// lines clients send and the exact notice lines the server emits. This is the
// source of truth for the line protocol.
package protocol

import (
	"fmt"
	"regexp"
	"strings"
)

// Verb is a recognized command verb.
type Verb string

const (
	VerbLogin Verb = "LOGIN"
	VerbJoin  Verb = "JOIN"
	VerbLeft  Verb = "LEFT"
)

// Command is a parsed command line: a verb and its single word-token argument
// (a nick for LOGIN, a room name for JOIN/LEFT).
type Command struct {
	Verb Verb
	Arg  string
}

// commandPattern matches a command line: optional leading non-word characters,
// a case-insensitive verb, at least one separator, and a word-token argument.
// Anything after the argument is ignored.
var commandPattern = regexp.MustCompile(`(?i)^\W*?(LOGIN|JOIN|LEFT)\W+(\w+)`)

// Parse classifies one line, its terminator already stripped. It returns the
// parsed command and true, or ok=false when the line is an ordinary chat
// message. A bare verb with no argument does not match and is chat.
func Parse(line string) (Command, bool) {
	m := commandPattern.FindStringSubmatch(line)
	if m == nil {
		return Command{}, false
	}
	return Command{Verb: Verb(strings.ToUpper(m[1])), Arg: m[2]}, true
}

// TrimLine strips the line terminator from a raw inbound line so telnet
// clients sending \r\n parse the same as ones sending bare \n.
func TrimLine(line string) string {
	return strings.TrimRight(line, "\r\n")
}

// Farewell is written to every client during server shutdown. Unlike global
// notices it carries its own framing.
const Farewell = "*** have a nice day ***\n"

// Notice frames a global notice for delivery.
func Notice(message string) string {
	return fmt.Sprintf("*** %s\n", message)
}

// HistoryHeader precedes the replay of a room's buffered messages to a new
// member.
func HistoryHeader(room string) string {
	return fmt.Sprintf("*** %s history\n", room)
}

// ChatLine formats a chat message as delivered to a room's members.
func ChatLine(room, nick, text string) string {
	return fmt.Sprintf("%s:%s> %s\n", room, nick, text)
}

// JoinedRoom is the global notice body announcing a JOIN.
func JoinedRoom(nick, room string) string {
	return fmt.Sprintf("User %s joined room %s", nick, room)
}

// LeftRoom is the global notice body announcing a LEFT. The spelling is part
// of the protocol.
func LeftRoom(nick, room string) string {
	return fmt.Sprintf("User %s lefted room %s", nick, room)
}

// NickChange is the global notice body announcing a LOGIN.
func NickChange(oldNick, newNick string) string {
	return fmt.Sprintf("User change nick %s --> %s", oldNick, newNick)
}

// LeaveChat is the global notice body announcing a disconnect.
func LeaveChat(nick string) string {
	return fmt.Sprintf("User %s leave chat", nick)
}
