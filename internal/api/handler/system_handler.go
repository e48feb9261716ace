package handler

import (
	"context"
	"net/http"
	"time"
)

// DepthSource reports queue depths per priority tier.
type DepthSource interface {
	Depths() (high, medium, low int)
}

// MetricsHandler serves a human-readable JSON queue snapshot.
// Raw Prometheus metrics are served separately at /metrics.
type MetricsHandler struct {
	q       DepthSource
	workers int
}

func NewMetricsHandler(q DepthSource, workers int) *MetricsHandler {
	return &MetricsHandler{q: q, workers: workers}
}

// GetMetrics handles GET /api/v1/metrics
//
// @Summary  Real-time queue depth snapshot
// @Tags     metrics
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/metrics [get]
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	high, medium, low := h.q.Depths()
	respondJSON(w, http.StatusOK, map[string]any{
		"queue_depth": map[string]int{
			"high":   high,
			"medium": medium,
			"low":    low,
			"total":  high + medium + low,
		},
		"workers": h.workers,
	})
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness probe. With a Pinger it also checks the database.
type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler { return &HealthHandler{db: db} }

// Health handles GET /health
//
// @Summary  Liveness probe
// @Tags     system
// @Produce  json
// @Success  200  {object}  map[string]string
// @Failure  503  {object}  map[string]string
// @Router   /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": err.Error()})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
