package websocket

import (
	"time"

	"github.com/gorilla/websocket"

	"datacleaner/pkg/contracts/events"
)

// Connection is the subset of *websocket.Conn used by a client. Tests
// substitute their own implementation.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)
	RemoteAddr() string
}

// Publisher is what the session service needs from the hub.
type Publisher interface {
	Publish(msg events.Message)
	CloseSession(sessionID, reason string)
}

// gorillaConn adapts *websocket.Conn to Connection.
type gorillaConn struct {
	*websocket.Conn
}

func (c gorillaConn) RemoteAddr() string {
	if addr := c.Conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
