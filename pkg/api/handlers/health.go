package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker reports whether a backing store can serve requests.
// The registry store backends implement it.
type HealthChecker interface {
	Healthcheck(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	store HealthChecker
}

// NewHealthHandler creates a health handler. store may be nil, in which
// case readiness always fails.
func NewHealthHandler(store HealthChecker) *HealthHandler {
	return &HealthHandler{store: store}
}

// Liveness handles GET /health. It succeeds while the process can answer
// HTTP at all.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": "filedeck",
	}))
}

// Readiness handles GET /health/ready by probing the user store.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("user store not initialized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := h.store.Healthcheck(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"user_store": "healthy",
		"latency":    time.Since(start).String(),
	}))
}
