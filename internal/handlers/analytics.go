package handlers

import (
	"net/http"

	"github.com/stadtmeldung/report-server/internal/middleware"
	"github.com/stadtmeldung/report-server/internal/services"
	"go.uber.org/zap"
)

// AnalyticsHandler serves the moderation dashboard aggregates. The numbers
// cover the whole collection, so every endpoint is gated on a moderation
// role.
type AnalyticsHandler struct {
	analytics *services.AnalyticsService
	logger    *zap.SugaredLogger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(as *services.AnalyticsService, logger *zap.SugaredLogger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: as, logger: logger}
}

func (h *AnalyticsHandler) summary(w http.ResponseWriter, r *http.Request) (*services.Summary, bool) {
	if !middleware.UserFrom(r.Context()).IsStaff() {
		respondError(w, http.StatusForbidden, "Nur Admin/Moderator.")
		return nil, false
	}
	return h.analytics.Summary(), true
}

// Summary handles GET /api/v1/analytics/summary.
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	s, ok := h.summary(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// Trends handles GET /api/v1/analytics/trends.
func (h *AnalyticsHandler) Trends(w http.ResponseWriter, r *http.Request) {
	s, ok := h.summary(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, s.Trend)
}

// Categories handles GET /api/v1/analytics/categories.
func (h *AnalyticsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	s, ok := h.summary(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, s.ByCategory)
}

// Statuses handles GET /api/v1/analytics/statuses.
func (h *AnalyticsHandler) Statuses(w http.ResponseWriter, r *http.Request) {
	s, ok := h.summary(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, s.ByStatus)
}
