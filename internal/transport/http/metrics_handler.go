package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// HubMetricsProvider exposes websocket hub counters
type HubMetricsProvider interface {
	GetHubMetrics() map[string]interface{}
}

// MetricsHandler serves JSON views of in-process counters. Prometheus
// metrics are served separately on /metrics.
type MetricsHandler struct {
	hub HubMetricsProvider
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(hub HubMetricsProvider) *MetricsHandler {
	return &MetricsHandler{hub: hub}
}

// Routes sets up the metrics routes
func (h *MetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/websocket", h.GetWebSocketMetrics)
	return r
}

// GetWebSocketMetrics handles GET /api/metrics/websocket
func (h *MetricsHandler) GetWebSocketMetrics(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		render.JSON(w, r, map[string]interface{}{})
		return
	}
	render.JSON(w, r, h.hub.GetHubMetrics())
}
