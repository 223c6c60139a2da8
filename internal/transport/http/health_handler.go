package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"datacleaner/internal/services"
)

// HealthReporter is the part of the health service the health endpoints need.
type HealthReporter interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
	GetDetailedHealth(ctx context.Context) map[string]interface{}
	Version() map[string]interface{}
}

// HealthHandler serves the liveness, readiness and version checks.
type HealthHandler struct {
	health HealthReporter
	logger *slog.Logger
}

func NewHealthHandler(health HealthReporter, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		health: health,
		logger: logger.With(slog.String("handler", "health")),
	}
}

// Routes mounts the health endpoints under /api.
func (h *HealthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", h.check(h.health.HealthCheck))
	r.Get("/health/live", h.check(h.health.LivenessCheck))
	r.Get("/health/ready", h.ready)
	r.Get("/health/detailed", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, h.health.GetDetailedHealth(r.Context()))
	})
	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, h.health.Version())
	})
	return r
}

func (h *HealthHandler) check(fn func(context.Context) services.HealthStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, fn(r.Context()))
	}
}

// ready answers 503 while the session store cannot take uploads, so load
// balancers stop routing to this instance.
func (h *HealthHandler) ready(w http.ResponseWriter, r *http.Request) {
	status := h.health.ReadinessCheck(r.Context())
	if status.Status != "ready" {
		h.logger.WarnContext(r.Context(), "readiness check failed",
			slog.String("status", status.Status),
			slog.Any("services", status.Services))
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, status)
}
