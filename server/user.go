package server

import (
	"log/slog"
)

// defaultNick is assigned to every connection until it issues a LOGIN.
const defaultNick = "anonymous"

// sendQueueSize bounds each user's outbound queue.
const sendQueueSize = 256

// User represents one connected client, whatever its transport. The hub
// goroutine is the only code that reads or mutates nick, rooms, and closed;
// the send channel is drained by the connection's write pump and closed by
// the hub on teardown.
type User struct {
	// id correlates log lines for one connection.
	id string

	nick string

	// Buffered channel of outbound lines.
	send chan []byte

	// Rooms the user has joined. Mirrors each Room's member set; the hub
	// always mutates both sides together.
	rooms map[*Room]bool

	closed bool

	logger *slog.Logger
}

func newUser(id string, logger *slog.Logger) *User {
	return &User{
		id:     id,
		nick:   defaultNick,
		send:   make(chan []byte, sendQueueSize),
		rooms:  make(map[*Room]bool),
		logger: logger,
	}
}

// enqueue queues one line for delivery. Delivery is best effort: a user that
// is already torn down, or whose queue is full, loses the line rather than
// blocking or failing the fan-out. Must be called from the hub goroutine.
func (u *User) enqueue(line string) bool {
	if u.closed {
		return false
	}
	select {
	case u.send <- []byte(line):
		return true
	default:
		u.logger.Debug("dropping line for slow consumer", "conn", u.id, "nick", u.nick)
		return false
	}
}

func (u *User) String() string {
	return u.nick
}
