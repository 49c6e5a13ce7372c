package handlers

import (
	"context"
	"net/http"
	"time"

	"sciportfolio/internal/jobs/background"

	"github.com/labstack/echo/v4"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// JobStatusProvider is satisfied by the background scheduler.
type JobStatusProvider interface {
	GetJobStatus() []background.JobStatus
}

// HealthHandlers handles health check endpoints
type HealthHandlers struct {
	db        Pinger
	redis     Pinger
	storage   Pinger
	jobs      JobStatusProvider
	version   string
	startedAt time.Time
}

// NewHealthHandlers creates health handlers. Only db is required; nil
// dependencies are reported as "disabled".
func NewHealthHandlers(db, redis, storage Pinger, jobs JobStatusProvider, version string) *HealthHandlers {
	return &HealthHandlers{
		db:        db,
		redis:     redis,
		storage:   storage,
		jobs:      jobs,
		version:   version,
		startedAt: time.Now(),
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Services  map[string]string      `json:"services"`
	Jobs      []background.JobStatus `json:"jobs,omitempty"`
	Uptime    string                 `json:"uptime"`
	Version   string                 `json:"version"`
}

// HealthCheck returns 200 while the database is reachable and 503 otherwise.
// Redis and storage failures only degrade the reported status.
func (h *HealthHandlers) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  make(map[string]string),
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		Version:   h.version,
	}

	statusCode := http.StatusOK
	if check(ctx, h.db) != "healthy" {
		health.Services["database"] = "unhealthy"
		health.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	} else {
		health.Services["database"] = "healthy"
	}

	for name, dep := range map[string]Pinger{"redis": h.redis, "storage": h.storage} {
		health.Services[name] = check(ctx, dep)
		if health.Services[name] == "unhealthy" && health.Status == "healthy" {
			health.Status = "degraded"
		}
	}
	if h.jobs != nil {
		health.Jobs = h.jobs.GetJobStatus()
	}

	return c.JSON(statusCode, health)
}

// LivenessCheck determines if the application is running (basic liveness probe)
func (h *HealthHandlers) LivenessCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func check(ctx context.Context, p Pinger) string {
	if p == nil {
		return "disabled"
	}
	if err := p.Ping(ctx); err != nil {
		return "unhealthy"
	}
	return "healthy"
}
