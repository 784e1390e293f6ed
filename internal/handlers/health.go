package handlers

import (
	"net/http"
	"time"

	"github.com/stadtmeldung/report-server/internal/services"
	"go.uber.org/zap"
)

var serverStart = time.Now()

// HealthHandler reports liveness and a few cheap counters.
type HealthHandler struct {
	reports *services.ReportService
	logger  *zap.SugaredLogger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(reports *services.ReportService, logger *zap.SugaredLogger) *HealthHandler {
	return &HealthHandler{reports: reports, logger: logger}
}

// Check handles GET /api/v1/health.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": "1.0.0",
		"uptime":  time.Since(serverStart).Round(time.Second).String(),
		"reports": len(h.reports.All()),
	})
}
