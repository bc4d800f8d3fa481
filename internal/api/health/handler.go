package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"hermes/pkg/logger"
)

// Checker reports the health of one dependency.
type Checker interface {
	Health(ctx context.Context) error
}

// Handler provides health check endpoints.
type Handler struct {
	log         *logger.Logger
	checks      map[string]Checker
	startTime   time.Time
	serviceName string
	version     string
}

// New creates a health check handler. checks maps component name to its
// checker; optional components (like the Redis cache) are simply absent.
func New(log *logger.Logger, checks map[string]Checker, serviceName, version string) *Handler {
	if checks == nil {
		checks = map[string]Checker{}
	}
	return &Handler{
		log:         log,
		checks:      checks,
		startTime:   time.Now(),
		serviceName: serviceName,
		version:     version,
	}
}

// HealthStatus represents the overall health status.
type HealthStatus struct {
	Status    string                     `json:"status"` // "healthy" or "unhealthy"
	Service   string                     `json:"service"`
	Version   string                     `json:"version"`
	Uptime    string                     `json:"uptime"`
	Timestamp string                     `json:"timestamp"`
	Checks    map[string]ComponentHealth `json:"checks,omitempty"`
}

// ComponentHealth represents the health of a single component.
type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time,omitempty"`
	Error        string `json:"error,omitempty"`
}

// HandleLiveness returns 200 OK while the process is running.
// Used by the Kubernetes liveness probe.
func (h *Handler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

// HandleReadiness checks whether the service is ready to accept traffic.
// Used by the Kubernetes readiness probe.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]ComponentHealth, len(h.checks))
	allHealthy := true

	for name, checker := range h.checks {
		started := time.Now()
		component := ComponentHealth{Status: "healthy"}
		if err := checker.Health(ctx); err != nil {
			component.Status = "unhealthy"
			component.Error = err.Error()
			allHealthy = false
		}
		component.ResponseTime = time.Since(started).String()
		checks[name] = component
	}

	status := HealthStatus{
		Status:    "healthy",
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    checks,
	}

	statusCode := http.StatusOK
	if !allHealthy {
		status.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
		h.log.Warnw("readiness check failed", "checks", checks)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(status)
}

// HandleHealth is the general health endpoint, same shape as readiness.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.HandleReadiness(w, r)
}
