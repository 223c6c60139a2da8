package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	apierrors "datacleaner/internal/errors"
	api "datacleaner/pkg/contracts/api/v1"
)

// WebSocketServer upgrades a request and subscribes it to a session.
type WebSocketServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) error
}

// SessionLookup checks a session exists.
type SessionLookup interface {
	Get(ctx context.Context, id string) (api.SessionResponse, error)
}

// WebSocketHandler serves GET /ws?session={id}.
type WebSocketHandler struct {
	hub          WebSocketServer
	sessions     SessionLookup
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewWebSocketHandler creates a websocket handler.
func NewWebSocketHandler(hub WebSocketServer, sessions SessionLookup, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *WebSocketHandler {
	return &WebSocketHandler{
		hub:          hub,
		sessions:     sessions,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "websocket")),
	}
}

// ServeHTTP subscribes the connection to the session named by the session
// query parameter. Unknown sessions are refused before the upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	if id == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("session", "session is required"))
		return
	}
	if _, err := uuid.Parse(id); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrSessionNotFound)
		return
	}
	if _, err := h.sessions.Get(r.Context(), id); err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err, ""))
		return
	}

	// the hub answers failed upgrades itself
	if err := h.hub.ServeWS(w, r, id); err != nil {
		h.logger.WarnContext(r.Context(), "websocket subscription failed",
			slog.String("session_id", id),
			slog.String("error", err.Error()))
	}
}
