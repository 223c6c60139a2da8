package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	"datacleaner/internal/config"
	apierrors "datacleaner/internal/errors"
	"datacleaner/internal/infrastructure"
	"datacleaner/pkg/contracts/events"
)

// ErrHubStopped is returned when a client connects after the hub stopped.
var ErrHubStopped = errors.New("websocket hub stopped")

const broadcastBuffer = 256

// Options configures a Hub.
type Options struct {
	ReadBufferSize  int
	WriteBufferSize int
	PingPeriod      time.Duration
	PongWait        time.Duration
	// AllowedOrigins restricts the Origin header of upgrade requests. Empty
	// allows every origin.
	AllowedOrigins []string
	Metrics        *infrastructure.BusinessMetrics
}

// OptionsFromConfig maps the application config onto hub options.
func OptionsFromConfig(ws config.WebSocketConfig, security config.SecurityConfig) Options {
	return Options{
		ReadBufferSize:  ws.ReadBufferSize,
		WriteBufferSize: ws.WriteBufferSize,
		PingPeriod:      ws.PingPeriod,
		PongWait:        ws.PongWait,
		AllowedOrigins:  security.AllowedOrigins,
	}
}

// HubStats are cumulative counters since the hub was created.
type HubStats struct {
	ActiveClients    int   `json:"active_clients"`
	TotalConnections int64 `json:"total_connections"`
	MessagesSent     int64 `json:"messages_sent"`
	MessagesDropped  int64 `json:"messages_dropped"`
}

// envelope is a marshalled message addressed to one session, or to every
// client when sessionID is empty.
type envelope struct {
	sessionID  string
	payload    []byte
	closeAfter bool
}

// Hub maintains the set of active clients and routes each message to the
// clients following its session.
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan envelope

	mu       sync.RWMutex
	logger   *slog.Logger
	opts     Options
	upgrader websocket.Upgrader

	totalConnections atomic.Int64
	messagesSent     atomic.Int64
	messagesDropped  atomic.Int64

	done     chan struct{}
	stopOnce sync.Once
}

// NewHub creates a hub. Zero options fall back to the config defaults.
func NewHub(logger *slog.Logger, opts Options) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if opts.ReadBufferSize == 0 {
		opts.ReadBufferSize = config.WebSocketReadBufferSize
	}
	if opts.WriteBufferSize == 0 {
		opts.WriteBufferSize = config.WebSocketWriteBufferSize
	}
	if opts.PongWait == 0 {
		opts.PongWait = config.WebSocketPongWait
	}
	if opts.PingPeriod == 0 || opts.PingPeriod >= opts.PongWait {
		opts.PingPeriod = opts.PongWait * 9 / 10
	}

	h := &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan envelope, broadcastBuffer),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		opts:       opts,
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  opts.ReadBufferSize,
		WriteBufferSize: opts.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
		Error:           h.upgradeError,
	}
	return h
}

// Run routes messages until ctx is cancelled, then disconnects every
// client. It always returns nil so it can share an errgroup with the
// server.
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	defer h.stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.InfoContext(ctx, "hub shutting down", slog.Int("clients", h.ClientCount()))
			return nil

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client, "disconnected")

		case env := <-h.broadcast:
			h.deliver(env)

		case <-ticker.C:
			stats := h.Stats()
			h.logger.Debug("hub stats",
				slog.Int("active_clients", stats.ActiveClients),
				slog.Int64("total_connections", stats.TotalConnections),
				slog.Int64("messages_sent", stats.MessagesSent),
				slog.Int64("messages_dropped", stats.MessagesDropped),
			)
		}
	}
}

func (h *Hub) stop() {
	h.stopOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		defer h.mu.Unlock()
		for client := range h.clients {
			close(client.send)
			delete(h.clients, client)
			h.recordClients(-1)
		}
	})
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.totalConnections.Add(1)
	h.recordClients(1)

	h.logger.InfoContext(client.context(), "client registered",
		slog.String("client_id", client.id),
		slog.String("session_id", client.sessionID),
		slog.String("remote_addr", client.remoteAddr),
		slog.Int("total_clients", count),
	)

	connect := events.NewMessage(events.MessageTypeConnect, client.sessionID, events.ConnectEvent{
		ClientID: client.id,
		Status:   "connected",
		Protocol: events.ProtocolVersion,
	})
	connect.TraceID = client.traceID
	if payload, err := json.Marshal(connect); err == nil {
		h.send(client, payload)
	}
}

// removeClient closes the client's send channel. It is a no-op for clients
// already removed.
func (h *Hub) removeClient(client *Client, reason string) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	h.recordClients(-1)
	h.logger.InfoContext(client.context(), "client unregistered",
		slog.String("client_id", client.id),
		slog.String("reason", reason),
		slog.Duration("connection_duration", time.Since(client.connectedAt)),
		slog.Int("total_clients", count),
	)
}

// send queues payload for client, disconnecting clients that fall behind.
func (h *Hub) send(client *Client, payload []byte) bool {
	select {
	case client.send <- payload:
		h.messagesSent.Add(1)
		return true
	default:
		h.messagesDropped.Add(1)
		h.removeClient(client, "send buffer full")
		return false
	}
}

func (h *Hub) deliver(env envelope) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		if env.sessionID == "" || client.sessionID == env.sessionID {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		if h.send(client, env.payload) && env.closeAfter {
			h.removeClient(client, "session closed")
		}
	}
}

// Publish routes msg to the clients of msg.SessionID, or to every client
// when it is empty. It never blocks; messages are dropped when the hub is
// stopped or its queue is full.
func (h *Hub) Publish(msg events.Message) {
	h.enqueue(msg, false)
}

// CloseSession tells the session's clients it ended and disconnects them.
func (h *Hub) CloseSession(sessionID, reason string) {
	msg := events.NewMessage(events.MessageTypeSessionClosed, sessionID, events.SessionClosedEvent{Reason: reason})
	h.enqueue(msg, true)
}

func (h *Hub) enqueue(msg events.Message, closeAfter bool) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal message",
			slog.String("error", err.Error()),
			slog.String("message_type", string(msg.Type)),
		)
		return
	}

	select {
	case <-h.done:
		return
	default:
	}

	select {
	case h.broadcast <- envelope{sessionID: msg.SessionID, payload: payload, closeAfter: closeAfter}:
	default:
		h.messagesDropped.Add(1)
		h.logger.Warn("broadcast queue full, message dropped",
			slog.String("message_type", string(msg.Type)),
			slog.String("session_id", msg.SessionID),
		)
	}
}

// ServeWS upgrades the request and subscribes the connection to
// sessionID. Upgrade failures are answered with a problem response.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := newClient(h, gorillaConn{conn}, sessionID, infrastructure.GetTraceID(r.Context()))
	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return ErrHubStopped
	}

	go client.writePump()
	go client.readPump()
	return nil
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns a snapshot of the hub counters.
func (h *Hub) Stats() HubStats {
	return HubStats{
		ActiveClients:    h.ClientCount(),
		TotalConnections: h.totalConnections.Load(),
		MessagesSent:     h.messagesSent.Load(),
		MessagesDropped:  h.messagesDropped.Load(),
	}
}

func (h *Hub) recordClients(delta int64) {
	if h.opts.Metrics != nil {
		h.opts.Metrics.WebSocketClients.Add(context.Background(), delta)
	}
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range h.opts.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

func (h *Hub) upgradeError(w http.ResponseWriter, r *http.Request, status int, reason error) {
	h.logger.WarnContext(r.Context(), "websocket upgrade failed",
		slog.Int("status", status),
		slog.String("error", reason.Error()),
		slog.String("origin", r.Header.Get("Origin")),
	)
	problem := apierrors.NewProblemDetails(status, apierrors.TypeWebSocketUpgrade,
		"WebSocket Upgrade Failed", reason.Error(), r.URL.Path)
	_ = render.Render(w, r, problem)
}
