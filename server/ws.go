package server

import (
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/morentharia/rambler-technical-test/server/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The relay has no authentication, so the gateway accepts any origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsConn adapts a websocket connection to the line transport: each text
// message carries exactly one protocol line, terminator included, so gateway
// clients see the same bytes a TCP client would.
type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadLine() (string, error) {
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if mt != websocket.TextMessage {
			continue
		}
		return protocol.TrimLine(string(data)), nil
	}
}

func (c *wsConn) WriteLine(line []byte) error {
	return c.conn.WriteMessage(websocket.TextMessage, line)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

func (c *wsConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// newGateway builds the HTTP server for the websocket gateway.
func (s *ChatServer) newGateway() *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	return &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// serveWS upgrades the request and runs the connection exactly like a TCP
// one: same User, same hub, same notices.
func (s *ChatServer) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	newClient(s.hub, &wsConn{conn: conn}, s.logger).run()
}
