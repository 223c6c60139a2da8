package websocket

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"datacleaner/internal/infrastructure"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Clients only send heartbeats
	maxMessageSize = 512

	sendBuffer = 64
)

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	hub  *Hub
	conn Connection

	// Buffered channel of outbound messages, closed by the hub
	send chan []byte

	id          string
	sessionID   string
	traceID     string
	remoteAddr  string
	connectedAt time.Time
	logger      *slog.Logger
}

func newClient(hub *Hub, conn Connection, sessionID, traceID string) *Client {
	id := uuid.New().String()
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		id:          id,
		sessionID:   sessionID,
		traceID:     traceID,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		logger: hub.logger.With(
			slog.String("component", "websocket.client"),
			slog.String("client_id", id),
			slog.String("session_id", sessionID),
		),
	}
}

func (c *Client) context() context.Context {
	ctx := context.Background()
	if c.traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, c.traceID)
	}
	return ctx
}

// readPump drains the connection so pongs and close frames are processed,
// and unregisters the client when the peer goes away.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	pongWait := c.hub.opts.PongWait
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.WarnContext(c.context(), "unexpected websocket close",
					slog.String("error", err.Error()))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

// writePump writes queued messages one frame each and keeps the
// connection alive with pings. It sends a close frame once the hub closes
// the send channel.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.DebugContext(c.context(), "websocket write failed",
					slog.String("error", err.Error()))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(c.context(), "websocket ping failed",
					slog.String("error", err.Error()))
				return
			}
		}
	}
}
