// Package api provides the gin HTTP handlers of the audit service.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/auditrail/internal/db"
	"github.com/persistorai/auditrail/internal/dbpool"
)

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	db        DatabaseChecker
	log       *logrus.Logger
	version   string
	startTime time.Time
}

// NewHealthHandler creates a HealthHandler. A nil checker reports the database
// as not configured.
func NewHealthHandler(checker DatabaseChecker, log *logrus.Logger, version string) *HealthHandler {
	return &HealthHandler{
		db:        checker,
		log:       log,
		version:   version,
		startTime: time.Now(),
	}
}

// readinessResponse is the JSON payload returned by the readiness endpoint.
type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// healthResponse is the JSON payload returned by the health/liveness endpoint.
type healthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	SchemaVersion int64   `json:"schema_version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Liveness handles GET /api/v1/health.
func (h *HealthHandler) Liveness(c *gin.Context) {
	resp := healthResponse{
		Status:        "ok",
		Version:       h.version,
		Database:      "connected",
		SchemaVersion: db.SchemaVersion(),
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	// Best-effort database ping (non-fatal for liveness).
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := h.db.HealthCheck(ctx); err != nil {
			resp.Database = "disconnected"
		}
	} else {
		resp.Database = "not_configured"
	}

	c.JSON(http.StatusOK, resp)
}

// Readiness handles GET /api/v1/ready. The service is ready once the
// database answers and every embedded migration has been applied.
func (h *HealthHandler) Readiness(c *gin.Context) {
	checks := map[string]string{
		"database": "ok",
		"schema":   "ok",
	}

	if h.db == nil {
		checks["database"] = "not_configured"
		checks["schema"] = "not_configured"
		c.JSON(http.StatusOK, readinessResponse{Status: "ready", Checks: checks})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK

	if err := h.db.HealthCheck(ctx); err != nil {
		h.log.WithError(err).Error("readiness: database health check failed")
		checks["database"] = "error"
		checks["schema"] = "unknown"
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	} else if applied, err := h.db.AppliedVersion(ctx); err != nil {
		h.log.WithError(err).Error("readiness: schema check failed")
		checks["schema"] = "error"
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	} else if applied < db.SchemaVersion() {
		h.log.WithField("applied", applied).Warn("readiness: migrations pending")
		checks["schema"] = "pending"
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, readinessResponse{
		Status: status,
		Checks: checks,
	})
}

// PoolChecker adapts a dbpool.Pool to DatabaseChecker.
type PoolChecker struct {
	Pool *dbpool.Pool
}

// HealthCheck pings the pool.
func (p PoolChecker) HealthCheck(ctx context.Context) error {
	return p.Pool.HealthCheck(ctx)
}

// AppliedVersion returns the highest applied migration version.
func (p PoolChecker) AppliedVersion(ctx context.Context) (int64, error) {
	return db.CurrentVersion(ctx, p.Pool)
}
