package handlers

import (
	"context"
	"net/http"
	"time"
)

type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler reports this server's own dependencies. Postgres and Redis
// are optional; a nil checker is reported as disabled and never fails.
type HealthHandler struct {
	db    HealthChecker
	redis HealthChecker
}

func NewHealthHandler(db, redis HealthChecker) *HealthHandler {
	return &HealthHandler{
		db:    db,
		redis: redis,
	}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

const checkDisabled = "disabled"

func (h *HealthHandler) check(ctx context.Context) (map[string]string, bool) {
	checks := make(map[string]string)
	healthy := true
	for name, checker := range map[string]HealthChecker{"postgres": h.db, "redis": h.redis} {
		if checker == nil {
			checks[name] = checkDisabled
			continue
		}
		if err := checker.Health(ctx); err != nil {
			healthy = false
			checks[name] = "unhealthy: " + err.Error()
			continue
		}
		checks[name] = "healthy"
	}
	return checks, healthy
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks, healthy := h.check(ctx)
	response := HealthResponse{
		Status:    "healthy",
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	status := http.StatusOK
	if !healthy {
		response.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, healthy := h.check(ctx); !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive"))
}
