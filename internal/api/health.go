package api

import (
	"net/http"
	"time"
)

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks"`
}

// HealthCheck probes one dependency; returns "" when healthy or a short
// problem description.
type HealthCheck func() string

// HealthHandler reports service liveness and dependency status.
type HealthHandler struct {
	version   string
	startTime time.Time
	checks    map[string]HealthCheck
}

func NewHealthHandler(version string, startTime time.Time, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: startTime,
		checks:    checks,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:        "ok",
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        make(map[string]string, len(h.checks)),
	}

	status := http.StatusOK
	for name, check := range h.checks {
		if problem := check(); problem != "" {
			resp.Checks[name] = problem
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		} else {
			resp.Checks[name] = "ok"
		}
	}

	WriteJSON(w, status, resp)
}
