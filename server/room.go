package server

import (
	"github.com/morentharia/rambler-technical-test/server/protocol"
)

// historyLength bounds each room's replay buffer.
const historyLength = 10

// Room is a named broadcast group with a bounded message history. Rooms are
// owned by the hub: every method must be called from the hub goroutine, which
// is what makes replay-then-register atomic with respect to broadcasts.
type Room struct {
	name    string
	members map[*User]bool

	// The most recent broadcasts, oldest first.
	history []string
}

func newRoom(name string) *Room {
	return &Room{
		name:    name,
		members: make(map[*User]bool),
	}
}

// addMember replays the room's buffered history to u alone, then registers u
// as a member. The order matters: u must never see a broadcast twice and must
// not miss one issued between replay and registration.
func (r *Room) addMember(u *User) {
	if len(r.history) > 0 {
		u.enqueue(protocol.HistoryHeader(r.name))
		for _, line := range r.history {
			u.enqueue(line)
		}
	}
	r.members[u] = true
}

// removeMember is idempotent; removing a non-member is a no-op.
func (r *Room) removeMember(u *User) {
	delete(r.members, u)
}

// broadcast appends line to the history, evicting the oldest entry past the
// bound, and delivers it to every current member. A failed delivery never
// aborts delivery to the rest.
func (r *Room) broadcast(line string) {
	r.history = append(r.history, line)
	if len(r.history) > historyLength {
		r.history = r.history[1:]
	}
	for member := range r.members {
		member.enqueue(line)
	}
}

// empty reports whether the room has no members and is eligible for removal
// from the registry.
func (r *Room) empty() bool {
	return len(r.members) == 0
}

func (r *Room) String() string {
	return r.name
}
