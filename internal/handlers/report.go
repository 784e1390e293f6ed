package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stadtmeldung/report-server/internal/middleware"
	"github.com/stadtmeldung/report-server/internal/models"
	"github.com/stadtmeldung/report-server/internal/services"
	"go.uber.org/zap"
)

// ReportHandler handles report lifecycle endpoints: submit, list, vote,
// status advance, moderation and export.
type ReportHandler struct {
	reports  *services.ReportService
	identity *services.IdentityService
	logger   *zap.SugaredLogger
}

// NewReportHandler creates a new report handler
func NewReportHandler(rs *services.ReportService, identity *services.IdentityService, logger *zap.SugaredLogger) *ReportHandler {
	return &ReportHandler{reports: rs, identity: identity, logger: logger}
}

// Submit handles POST /api/v1/reports.
func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var sub models.ReportSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user := middleware.UserFrom(r.Context())
	report, err := h.reports.Create(&sub, user, h.deviceID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, report)
}

// List handles GET /api/v1/reports with the filter query parameters
// status, category, area, q, sort, onlyMine, moderation, showUnapproved.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	q := r.URL.Query()

	// The moderation view is only honored for moderation roles.
	moderationView := q.Get("moderation") == "true" && user.IsStaff()

	sortOrder := services.SortNewest
	if q.Get("sort") == "oldest" {
		sortOrder = services.SortOldest
	}

	filter := services.Filter{
		Status:         q.Get("status"),
		Category:       q.Get("category"),
		Area:           q.Get("area"),
		Text:           q.Get("q"),
		OnlyMine:       q.Get("onlyMine") == "true",
		ShowUnapproved: q.Get("showUnapproved") == "true",
		Sort:           sortOrder,
	}

	reports := services.FilterReports(h.reports.All(), user, moderationView, filter)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"reports": reports,
		"count":   len(reports),
	})
}

// Get handles GET /api/v1/reports/{id}.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}
	report, err := h.reports.Get(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	// Unapproved reports stay hidden outside moderation roles.
	if !report.Approved && !middleware.UserFrom(r.Context()).IsStaff() {
		respondError(w, http.StatusNotFound, "Not found")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Delete handles DELETE /api/v1/reports/{id}. Removal is unconditional and
// immediate; the frontend asks for confirmation before calling.
func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}
	if err := h.reports.Delete(id, middleware.UserFrom(r.Context())); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Deleted"})
}

// Advance handles POST /api/v1/reports/{id}/advance. An actor without
// permission gets the unchanged report back, not an error.
func (h *ReportHandler) Advance(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}
	report, err := h.reports.AdvanceStatus(id, middleware.UserFrom(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Vote handles POST /api/v1/reports/{id}/vote. The voter is the session
// user when logged in, otherwise the device identity.
func (h *ReportHandler) Vote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}

	voter := ""
	if user := middleware.UserFrom(r.Context()); user != nil {
		voter = user.ID
	} else {
		voter = h.deviceID(r)
	}

	report, err := h.reports.Vote(id, voter)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Approve handles POST /api/v1/reports/{id}/approve.
func (h *ReportHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}
	report, err := h.reports.Approve(id, middleware.UserFrom(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Reject handles POST /api/v1/reports/{id}/reject — deletes the unapproved
// report, there is no rejected state.
func (h *ReportHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}
	if err := h.reports.Reject(id, middleware.UserFrom(r.Context())); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Rejected"})
}

// Export handles GET /api/v1/reports/export?format=csv|xlsx (admin only).
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	all := h.reports.All()
	stamp := time.Now().UnixMilli()

	switch r.URL.Query().Get("format") {
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="stadtmeldung_export_%d.xlsx"`, stamp))
		if err := services.ExportXLSX(w, all, user); err != nil {
			h.exportError(w, err)
		}
	default:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="stadtmeldung_export_%d.csv"`, stamp))
		if err := services.ExportCSV(w, all, user); err != nil {
			h.exportError(w, err)
		}
	}
}

// exportError resets the download headers before writing the error body.
func (h *ReportHandler) exportError(w http.ResponseWriter, err error) {
	w.Header().Del("Content-Disposition")
	respondServiceError(w, err)
}

// NotifyOnStatus handles GET/PUT /api/v1/preferences/notify-on-status.
func (h *ReportHandler) NotifyOnStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPut {
		var body struct {
			Enabled bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		h.reports.SetNotifyOnStatus(body.Enabled)
	}
	respondJSON(w, http.StatusOK, map[string]bool{"enabled": h.reports.NotifyOnStatus()})
}

func (h *ReportHandler) reportID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid report id")
		return 0, false
	}
	return id, true
}

// deviceID resolves the caller's device identity: an explicit X-Device-ID
// header wins, otherwise the server-profile identifier.
func (h *ReportHandler) deviceID(r *http.Request) string {
	if id := r.Header.Get("X-Device-ID"); id != "" {
		return id
	}
	return h.identity.DeviceID()
}
