package server

import (
	"context"
	"log/slog"

	"github.com/morentharia/rambler-technical-test/server/protocol"
)

// command is a parsed LOGIN/JOIN/LEFT line routed to the hub for execution.
type command struct {
	user *User
	verb protocol.Verb
	arg  string
}

// chatLine is an ordinary chat message from one user, relayed to every room
// it has joined.
type chatLine struct {
	user *User
	text string
}

// Hub maintains the set of connected users and the room registry, and
// executes every command and broadcast. Its run loop is the single goroutine
// that touches users, rooms, memberships, histories, and nicks, so each
// inbound line executes to completion without interleaving from other
// connections. That serialization is what guarantees members observe room
// messages in broadcast order.
type Hub struct {
	// Connected users. Mutated only on connect and disconnect.
	users map[*User]bool

	// Room registry, keyed by name. Holds exactly one live Room per name;
	// rooms are removed as soon as their member set becomes empty.
	rooms map[string]*Room

	// Register requests from new connections.
	register chan *User

	// Unregister requests from closing connections.
	unregister chan *User

	// Parsed command lines from the read pumps.
	commands chan command

	// Chat lines from the read pumps.
	chat chan chatLine

	ctx    context.Context
	cancel context.CancelFunc

	// done is closed when the run loop has finished shutting down; read
	// pumps select on it so they never block on a stopped hub.
	done chan struct{}

	logger *slog.Logger
}

func newHub(logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		users:      make(map[*User]bool),
		rooms:      make(map[string]*Room),
		register:   make(chan *User),
		unregister: make(chan *User),
		commands:   make(chan command),
		chat:       make(chan chatLine),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		logger:     logger,
	}
}

func (h *Hub) run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownUsers()
			return
		case u := <-h.register:
			h.users[u] = true
			h.logger.Info("user connected", "conn", u.id)
		case u := <-h.unregister:
			h.teardown(u)
		case cmd := <-h.commands:
			h.handleCommand(cmd)
		case msg := <-h.chat:
			h.handleChat(msg)
		}
	}
}

// stop cancels the run loop and waits until every connected user has been
// sent the farewell and had its queue closed.
func (h *Hub) stop() {
	h.cancel()
	<-h.done
}

func (h *Hub) handleCommand(cmd command) {
	// A command can race the sender's own teardown; drop it rather than
	// resurrect state for a gone user.
	if !h.users[cmd.user] {
		return
	}
	switch cmd.verb {
	case protocol.VerbLogin:
		h.handleLogin(cmd.user, cmd.arg)
	case protocol.VerbJoin:
		h.handleJoin(cmd.user, cmd.arg)
	case protocol.VerbLeft:
		h.handleLeft(cmd.user, cmd.arg)
	}
}

// handleLogin announces the nick change, then applies it. Nicks are not
// validated and not unique.
func (h *Hub) handleLogin(u *User, nick string) {
	h.broadcastAll(protocol.NickChange(u.nick, nick))
	u.nick = nick
}

// handleJoin adds u to the named room, creating it on first reference.
// History replay happens inside addMember, before the join notice goes out.
func (h *Hub) handleJoin(u *User, name string) {
	room := h.getOrCreateRoom(name)
	u.rooms[room] = true
	room.addMember(u)
	h.broadcastAll(protocol.JoinedRoom(u.nick, room.name))
	h.logger.Info("user joined room", "conn", u.id, "nick", u.nick, "room", room.name)
}

// handleLeft detaches u from the named room. The lookup deliberately goes
// through get-or-create: LEFT on a never-joined name allocates an empty room
// that the empty check below immediately collects, and the notice is sent
// whether or not u was a member.
func (h *Hub) handleLeft(u *User, name string) {
	room := h.getOrCreateRoom(name)
	h.detach(u, room)
	h.broadcastAll(protocol.LeftRoom(u.nick, room.name))
	h.logger.Info("user left room", "conn", u.id, "nick", u.nick, "room", room.name)
}

// handleChat relays one chat line to every room the sender has joined. A
// sender in no rooms produces no output.
func (h *Hub) handleChat(msg chatLine) {
	if !h.users[msg.user] {
		return
	}
	for room := range msg.user.rooms {
		room.broadcast(protocol.ChatLine(room.name, msg.user.nick, msg.text))
	}
}

// getOrCreateRoom returns the unique Room for name, creating it if absent.
func (h *Hub) getOrCreateRoom(name string) *Room {
	if room, ok := h.rooms[name]; ok {
		return room
	}
	room := newRoom(name)
	h.rooms[name] = room
	return room
}

// detach removes the membership link on both sides and collects the room if
// it ended up empty. Every member removal must come through here so empty
// rooms never linger in the registry.
func (h *Hub) detach(u *User, room *Room) {
	delete(u.rooms, room)
	room.removeMember(u)
	if room.empty() {
		delete(h.rooms, room.name)
	}
}

// broadcastAll sends a global notice to every connected user.
func (h *Hub) broadcastAll(message string) {
	line := protocol.Notice(message)
	for u := range h.users {
		u.enqueue(line)
	}
}

// teardown runs the disconnect sequence for u: announce the departure, run
// the LEFT logic for every joined room, and drop u from the registry. The
// membership guard makes it run exactly once even if an unregister races a
// concurrent failure path.
func (h *Hub) teardown(u *User) {
	if !h.users[u] {
		return
	}
	h.broadcastAll(protocol.LeaveChat(u.nick))
	for room := range u.rooms {
		h.detach(u, room)
		h.broadcastAll(protocol.LeftRoom(u.nick, room.name))
	}
	delete(h.users, u)
	u.closed = true
	close(u.send)
	h.logger.Info("user disconnected", "conn", u.id, "nick", u.nick)
}

// shutdownUsers delivers the farewell to every connected user and closes
// their queues; the write pumps drain the farewell and close the sockets.
func (h *Hub) shutdownUsers() {
	h.logger.Info("disconnecting all users", "count", len(h.users))
	for u := range h.users {
		u.enqueue(protocol.Farewell)
		u.closed = true
		close(u.send)
	}
	h.users = make(map[*User]bool)
	h.rooms = make(map[string]*Room)
}
