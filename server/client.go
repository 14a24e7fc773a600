package server

import (
	"bufio"
	"log/slog"
	"net"

	"github.com/google/uuid"

	"github.com/morentharia/rambler-technical-test/server/protocol"
)

// lineConn abstracts a transport as a stream of newline-delimited protocol
// lines, so the pumps work identically for raw TCP and the WebSocket gateway.
type lineConn interface {
	// ReadLine blocks until a full line arrives and returns it with the
	// terminator stripped.
	ReadLine() (string, error)

	// WriteLine writes one already-terminated line.
	WriteLine(line []byte) error

	Close() error
	RemoteAddr() net.Addr
}

// tcpConn is the primary transport: plain text lines over a TCP socket.
type tcpConn struct {
	conn   net.Conn
	reader *bufio.Reader
}

func newTCPConn(conn net.Conn) *tcpConn {
	return &tcpConn{conn: conn, reader: bufio.NewReader(conn)}
}

func (c *tcpConn) ReadLine() (string, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return protocol.TrimLine(line), nil
}

func (c *tcpConn) WriteLine(line []byte) error {
	_, err := c.conn.Write(line)
	return err
}

func (c *tcpConn) Close() error {
	return c.conn.Close()
}

func (c *tcpConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// client ties a User to its connection and runs the per-connection pumps.
type client struct {
	hub    *Hub
	conn   lineConn
	user   *User
	logger *slog.Logger
}

func newClient(hub *Hub, conn lineConn, logger *slog.Logger) *client {
	id := uuid.New().String()
	logger = logger.With("conn", id, "remote", conn.RemoteAddr().String())
	return &client{
		hub:    hub,
		conn:   conn,
		user:   newUser(id, logger),
		logger: logger,
	}
}

// run registers the user with the hub and starts the pumps. It returns when
// the connection reaches its terminal state.
func (c *client) run() {
	select {
	case c.hub.register <- c.user:
	case <-c.hub.done:
		c.conn.Close()
		return
	}
	go c.writePump()
	c.readPump()
}

// readPump is the connection's protocol loop: block for a line, classify it,
// hand it to the hub, repeat until a read fails or a protocol error makes the
// connection unusable. The deferred unregister is the single trigger for
// teardown; the hub's registry guard makes teardown run exactly once.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c.user:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	for {
		line, err := c.conn.ReadLine()
		if err != nil {
			c.logger.Debug("read ended", "error", err)
			return
		}
		if !c.dispatch(line) {
			return
		}
	}
}

// dispatch routes one inbound line and reports whether the connection may
// keep going.
func (c *client) dispatch(line string) bool {
	cmd, ok := protocol.Parse(line)
	if !ok {
		select {
		case c.hub.chat <- chatLine{user: c.user, text: line}:
			return true
		case <-c.hub.done:
			return false
		}
	}

	switch cmd.Verb {
	case protocol.VerbLogin, protocol.VerbJoin, protocol.VerbLeft:
		select {
		case c.hub.commands <- command{user: c.user, verb: cmd.Verb, arg: cmd.Arg}:
			return true
		case <-c.hub.done:
			return false
		}
	default:
		// The grammar matched a verb we have no handler for. That is a
		// parser/handler mismatch, fatal for this connection.
		c.logger.Error("no handler for command", "verb", cmd.Verb)
		return false
	}
}

// writePump owns all writes to the connection. It drains the user's queue
// until the hub closes it, then closes the socket; a failed write stops the
// pump and the read pump observes the close.
func (c *client) writePump() {
	defer c.conn.Close()

	for line := range c.user.send {
		if err := c.conn.WriteLine(line); err != nil {
			c.logger.Debug("write failed", "error", err)
			return
		}
	}
}
