package handler

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// readyTimeout bounds all dependency pings of one readiness check.
const readyTimeout = 5 * time.Second

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	names  []string
	checks map[string]HealthChecker
}

// NewHealthHandler creates a new HealthHandler. checks maps a dependency
// name (e.g. "store", "postgres", "redis") to its pinger; nil entries are
// reported as not configured.
func NewHealthHandler(checks map[string]HealthChecker) *HealthHandler {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return &HealthHandler{names: names, checks: checks}
}

// Health is the liveness check. It never touches dependencies.
//
// GET /api/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, "", envelope{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// Readyz is the readiness check. It pings every dependency and returns 200
// only if all configured ones answer.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	checks := make(map[string]string, len(h.names))
	healthy := true

	for _, name := range h.names {
		checker := h.checks[name]
		if checker == nil {
			checks[name] = "not configured"
			continue
		}
		if err := checker.Ping(ctx); err != nil {
			checks[name] = "error: " + err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	status, code := "ok", http.StatusOK
	if !healthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	writeJSON(w, code, envelope{
		"success": healthy,
		"status":  status,
		"checks":  checks,
	})
}
