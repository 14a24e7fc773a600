package server

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// drainUser reads every line currently queued for u.
func drainUser(u *User) []string {
	var lines []string
	for {
		select {
		case b := <-u.send:
			lines = append(lines, string(b))
		default:
			return lines
		}
	}
}

func TestRoomBroadcastReachesAllMembers(t *testing.T) {
	room := newRoom("lobby")
	u1 := newUser("u1", testLogger())
	u2 := newUser("u2", testLogger())
	room.addMember(u1)
	room.addMember(u2)

	room.broadcast("lobby:anonymous> hello\n")

	for i, u := range []*User{u1, u2} {
		got := drainUser(u)
		if len(got) != 1 || got[0] != "lobby:anonymous> hello\n" {
			t.Errorf("member %d received %q, want exactly one copy", i, got)
		}
	}
}

func TestRoomBroadcastOrder(t *testing.T) {
	room := newRoom("lobby")
	u := newUser("u1", testLogger())
	room.addMember(u)

	for i := 0; i < 5; i++ {
		room.broadcast(fmt.Sprintf("lobby:bob> message %d\n", i))
	}

	got := drainUser(u)
	if len(got) != 5 {
		t.Fatalf("received %d lines, want 5", len(got))
	}
	for i, line := range got {
		want := fmt.Sprintf("lobby:bob> message %d\n", i)
		if line != want {
			t.Errorf("line %d = %q, want %q", i, line, want)
		}
	}
}

func TestRoomHistoryReplayOnJoin(t *testing.T) {
	room := newRoom("lobby")
	sender := newUser("u1", testLogger())
	room.addMember(sender)
	room.broadcast("lobby:anonymous> first\n")
	room.broadcast("lobby:anonymous> second\n")

	joiner := newUser("u2", testLogger())
	room.addMember(joiner)
	room.broadcast("lobby:anonymous> third\n")

	got := drainUser(joiner)
	want := []string{
		"*** lobby history\n",
		"lobby:anonymous> first\n",
		"lobby:anonymous> second\n",
		"lobby:anonymous> third\n",
	}
	if len(got) != len(want) {
		t.Fatalf("joiner received %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRoomNoReplayForEmptyHistory(t *testing.T) {
	room := newRoom("lobby")
	u := newUser("u1", testLogger())
	room.addMember(u)

	if got := drainUser(u); len(got) != 0 {
		t.Errorf("joiner of a fresh room received %q, want nothing", got)
	}
}

func TestRoomHistoryBound(t *testing.T) {
	room := newRoom("lobby")
	sender := newUser("u1", testLogger())
	room.addMember(sender)
	for i := 0; i < historyLength+5; i++ {
		room.broadcast(fmt.Sprintf("lobby:bob> message %d\n", i))
	}

	joiner := newUser("u2", testLogger())
	room.addMember(joiner)

	got := drainUser(joiner)
	if len(got) != historyLength+1 {
		t.Fatalf("joiner received %d lines, want header plus %d", len(got), historyLength)
	}
	if got[0] != "*** lobby history\n" {
		t.Errorf("first line = %q, want history header", got[0])
	}
	// Only the most recent historyLength messages survive.
	for i := 0; i < historyLength; i++ {
		want := fmt.Sprintf("lobby:bob> message %d\n", i+5)
		if got[i+1] != want {
			t.Errorf("replayed line %d = %q, want %q", i, got[i+1], want)
		}
	}
}

func TestRoomRemoveMemberIdempotent(t *testing.T) {
	room := newRoom("lobby")
	member := newUser("u1", testLogger())
	stranger := newUser("u2", testLogger())
	room.addMember(member)

	room.removeMember(stranger)
	room.removeMember(stranger)

	if room.empty() {
		t.Error("room lost its member after removing a stranger")
	}
	room.broadcast("lobby:bob> still here\n")
	if got := drainUser(member); len(got) != 1 {
		t.Errorf("member received %q after stranger removal", got)
	}
}

func TestRoomEmpty(t *testing.T) {
	room := newRoom("lobby")
	if !room.empty() {
		t.Error("fresh room is not empty")
	}
	u := newUser("u1", testLogger())
	room.addMember(u)
	if room.empty() {
		t.Error("room with a member reports empty")
	}
	room.removeMember(u)
	if !room.empty() {
		t.Error("room reports non-empty after last member left")
	}
}

func TestRoomBroadcastSkipsClosedUsers(t *testing.T) {
	room := newRoom("lobby")
	live := newUser("u1", testLogger())
	gone := newUser("u2", testLogger())
	room.addMember(live)
	room.addMember(gone)
	gone.closed = true

	room.broadcast("lobby:bob> hello\n")

	if got := drainUser(live); len(got) != 1 {
		t.Errorf("live member received %q, want one line", got)
	}
	if got := drainUser(gone); len(got) != 0 {
		t.Errorf("closed member received %q, want nothing", got)
	}
}
