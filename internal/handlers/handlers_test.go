package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stadtmeldung/report-server/internal/geocode"
	"github.com/stadtmeldung/report-server/internal/middleware"
	"github.com/stadtmeldung/report-server/internal/models"
	"github.com/stadtmeldung/report-server/internal/notify"
	"github.com/stadtmeldung/report-server/internal/services"
	"github.com/stadtmeldung/report-server/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestRouter wires the full API over an in-memory store, mirroring the
// production route tree. The demo seed reports are present (four approved,
// one pending moderation).
func newTestRouter(t *testing.T) chi.Router {
	t.Helper()

	store := storage.NewMemStore()
	logger := zap.NewNop().Sugar()

	identitySvc := services.NewIdentityService(store, logger, "test-secret", time.Hour)
	subscriptionSvc := services.NewSubscriptionService(store, logger)
	reportSvc := services.NewReportService(store, subscriptionSvc, notify.Discard{}, logger)
	analyticsSvc := services.NewAnalyticsService(reportSvc)
	chatSvc := services.NewChatService(store, logger)
	forumSvc := services.NewForumService(store, logger)

	authHandler := NewAuthHandler(identitySvc, logger)
	reportHandler := NewReportHandler(reportSvc, identitySvc, logger)
	analyticsHandler := NewAnalyticsHandler(analyticsSvc, logger)
	subscriptionHandler := NewSubscriptionHandler(subscriptionSvc, logger)
	geocodeHandler := NewGeocodeHandler(geocode.NewTableResolver(), logger)
	chatHandler := NewChatHandler(chatSvc, logger)
	forumHandler := NewForumHandler(forumSvc, logger)
	healthHandler := NewHealthHandler(reportSvc, logger)

	r := chi.NewRouter()
	r.Use(middleware.SessionUser(identitySvc))
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.Check)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/device", authHandler.Device)
		})
		r.Route("/reports", func(r chi.Router) {
			r.Post("/", reportHandler.Submit)
			r.Get("/", reportHandler.List)
			r.Get("/export", reportHandler.Export)
			r.Get("/{id}", reportHandler.Get)
			r.Delete("/{id}", reportHandler.Delete)
			r.Post("/{id}/advance", reportHandler.Advance)
			r.Post("/{id}/vote", reportHandler.Vote)
			r.Post("/{id}/approve", reportHandler.Approve)
			r.Post("/{id}/reject", reportHandler.Reject)
		})
		r.Get("/preferences/notify-on-status", reportHandler.NotifyOnStatus)
		r.Put("/preferences/notify-on-status", reportHandler.NotifyOnStatus)
		r.Route("/analytics", func(r chi.Router) {
			r.Get("/summary", analyticsHandler.Summary)
			r.Get("/trends", analyticsHandler.Trends)
			r.Get("/categories", analyticsHandler.Categories)
			r.Get("/statuses", analyticsHandler.Statuses)
		})
		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/", subscriptionHandler.List)
			r.Post("/", subscriptionHandler.Add)
			r.Delete("/{index}", subscriptionHandler.Remove)
		})
		r.Get("/geocode", geocodeHandler.Resolve)
		r.Get("/geocode/areas", geocodeHandler.Areas)
		r.Get("/chat", chatHandler.History)
		r.Post("/chat", chatHandler.Post)
		r.Route("/forum", func(r chi.Router) {
			r.Get("/", forumHandler.List)
			r.Post("/", forumHandler.CreateThread)
			r.Post("/{id}/comments", forumHandler.Reply)
			r.Delete("/{id}", forumHandler.DeleteThread)
			r.Delete("/{id}/comments/{cid}", forumHandler.DeleteComment)
		})
	})
	return r
}

func doJSON(t *testing.T, router chi.Router, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// login runs the demo login and returns the session token.
func login(t *testing.T, router chi.Router, name string, admin, moderator bool) string {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"name":        name,
		"isAdmin":     admin,
		"isModerator": moderator,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

type listResponse struct {
	Reports []*models.Report `json:"reports"`
	Count   int              `json:"count"`
}

func listReports(t *testing.T, router chi.Router, path, token string) listResponse {
	t.Helper()

	rec := doJSON(t, router, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestSubmitAndList(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/reports", "", map[string]any{
		"category":    "schlagloch",
		"description": "Tiefes Loch in der Fahrbahn",
		"location":    map[string]any{"lat": 52.5, "lng": 13.4, "area": "Mitte", "zip": "10115"},
		"anonymous":   true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, models.StatusReported, created.Status)
	assert.False(t, created.Approved)

	// Unapproved, so invisible in the public list.
	resp := listReports(t, router, "/api/v1/reports", "")
	for _, r := range resp.Reports {
		assert.NotEqual(t, created.ID, r.ID)
	}

	// An admin approves it; now it shows up.
	admin := login(t, router, "Admin", true, false)
	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/reports/%d/approve", created.ID), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp = listReports(t, router, "/api/v1/reports?sort=newest", "")
	require.NotEmpty(t, resp.Reports)
	assert.Equal(t, created.ID, resp.Reports[0].ID)
}

func TestSubmitRejectsInvalid(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/reports", "", map[string]any{
		"category":    "ufo",
		"description": "x",
		"location":    map[string]any{"lat": 1.0, "lng": 1.0},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestModerationViewRequiresRole(t *testing.T) {
	router := newTestRouter(t)

	// Seed report 5 is unapproved. The moderation flags are ignored for
	// anonymous callers.
	resp := listReports(t, router, "/api/v1/reports?moderation=true&showUnapproved=true", "")
	assert.Equal(t, 4, resp.Count)

	moderator := login(t, router, "Mod", false, true)
	resp = listReports(t, router, "/api/v1/reports?moderation=true&showUnapproved=true", moderator)
	assert.Equal(t, 5, resp.Count)
}

func TestGetHidesUnapproved(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/reports/5", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	admin := login(t, router, "Admin", true, false)
	rec = doJSON(t, router, http.MethodGet, "/api/v1/reports/5", admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetInvalidID(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/reports/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/reports/999999", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVoteIsIdempotentPerDevice(t *testing.T) {
	router := newTestRouter(t)

	vote := func(device string) models.Report {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/1/vote", nil)
		req.Header.Set("X-Device-ID", device)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var report models.Report
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		return report
	}

	// Seed report 1 starts with two votes.
	assert.Equal(t, 3, vote("device-x").Votes.Count)
	assert.Equal(t, 3, vote("device-x").Votes.Count)
	assert.Equal(t, 4, vote("device-y").Votes.Count)
}

func TestAdvanceWithoutPermissionIsNoOp(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/reports/1/advance", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report models.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, models.StatusReported, report.Status)
}

func TestAdvanceAsModerator(t *testing.T) {
	router := newTestRouter(t)
	moderator := login(t, router, "Mod", false, true)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/reports/1/advance", moderator, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report models.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, models.StatusAccepted, report.Status)
	assert.Len(t, report.StatusHistory, 2)
}

func TestRejectDeletes(t *testing.T) {
	router := newTestRouter(t)
	moderator := login(t, router, "Mod", false, true)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/reports/5/reject", moderator, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/reports/5", moderator, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApproveRequiresRole(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/reports/5/approve", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	user := login(t, router, "Nutzer", false, false)
	rec = doJSON(t, router, http.MethodPost, "/api/v1/reports/5/approve", user, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestExportPermissions(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/reports/export?format=csv", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Disposition"))

	// Moderators cannot export either, only admins.
	moderator := login(t, router, "Mod", false, true)
	rec = doJSON(t, router, http.MethodGet, "/api/v1/reports/export?format=csv", moderator, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := login(t, router, "Admin", true, false)
	rec = doJSON(t, router, http.MethodGet, "/api/v1/reports/export?format=csv", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "stadtmeldung_export_")
	assert.Contains(t, rec.Body.String(), "id,category,description")

	rec = doJSON(t, router, http.MethodGet, "/api/v1/reports/export?format=xlsx", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "PK", rec.Body.String()[:2])
}

func TestAnalyticsRequiresRole(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/analytics/summary", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	moderator := login(t, router, "Mod", false, true)
	rec = doJSON(t, router, http.MethodGet, "/api/v1/analytics/summary", moderator, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary services.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 5, summary.Totals.Total)
	assert.Equal(t, 4, summary.Totals.Approved)
}

func TestNotifyPreferenceRoundTrip(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/preferences/notify-on-status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"enabled":false`)

	rec = doJSON(t, router, http.MethodPut, "/api/v1/preferences/notify-on-status", "", map[string]bool{"enabled": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"enabled":true`)
}

func TestSubscriptionEndpoints(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/subscriptions", "", map[string]string{
		"type": "area", "value": "Mitte",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/subscriptions", "", map[string]string{
		"type": "postfach", "value": "x",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/subscriptions", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Mitte")

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/subscriptions/0", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestGeocodeEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/geocode?q=Mitte", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var loc models.Location
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loc))
	assert.Equal(t, "Mitte", loc.Area)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/geocode?q=Atlantis", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/geocode", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/geocode/areas", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Kreuzberg")
}

func TestChatEndpoints(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/chat", "", map[string]string{"text": "Hallo"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/chat", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var msgs []models.ChatMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	// Welcome message, user message, bot reply.
	require.Len(t, msgs, 3)
	assert.Equal(t, "bot", msgs[2].From)
}

func TestForumEndpoints(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/forum", "", map[string]string{
		"title": "Müllabfuhr", "text": "Kommt die noch?",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var thread models.ForumThread
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &thread))
	assert.Equal(t, "Gast", thread.Author)

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/forum/%d/comments", thread.ID), "", map[string]string{
		"text": "Ja, dienstags.",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Deleting a thread needs a moderation role.
	rec = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/forum/%d", thread.ID), "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	moderator := login(t, router, "Mod", false, true)
	rec = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/forum/%d", thread.ID), moderator, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionPersistsAcrossRequests(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router, "Anna", false, false)

	resp := listReports(t, router, "/api/v1/reports?onlyMine=true", token)
	assert.Equal(t, 0, resp.Count)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
