package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"datacleaner/internal/services"
)

// MetricsHandler serves the Prometheus scrape endpoint and a JSON view of
// the runtime counters.
type MetricsHandler struct {
	prometheus http.Handler
	health     *services.HealthService
}

// NewMetricsHandler creates a metrics handler. A nil prometheus handler
// answers the scrape endpoint with 404, as when metrics are disabled.
func NewMetricsHandler(prometheus http.Handler, health *services.HealthService) *MetricsHandler {
	return &MetricsHandler{prometheus: prometheus, health: health}
}

// Routes sets up the metrics routes
func (h *MetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Scrape)
	r.Get("/stats", h.GetStats)
	return r
}

// Scrape handles GET {metrics_path}
func (h *MetricsHandler) Scrape(w http.ResponseWriter, r *http.Request) {
	if h.prometheus == nil {
		http.NotFound(w, r)
		return
	}
	h.prometheus.ServeHTTP(w, r)
}

// GetStats handles GET {metrics_path}/stats
func (h *MetricsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.health.SystemStats(r.Context()))
}
