package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/stadtmeldung/report-server/internal/models"
	"github.com/stadtmeldung/report-server/internal/services"
	"go.uber.org/zap"
)

// SubscriptionHandler manages the area/zip watch rules.
type SubscriptionHandler struct {
	subs   *services.SubscriptionService
	logger *zap.SugaredLogger
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(subs *services.SubscriptionService, logger *zap.SugaredLogger) *SubscriptionHandler {
	return &SubscriptionHandler{subs: subs, logger: logger}
}

// List handles GET /api/v1/subscriptions.
func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.subs.List())
}

type subscriptionRequest struct {
	Type  models.SubscriptionType `json:"type"`
	Value string                  `json:"value"`
}

// Add handles POST /api/v1/subscriptions. Duplicate rules (same type,
// case-insensitively equal value) are silently ignored.
func (h *SubscriptionHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Type != models.SubscriptionArea && req.Type != models.SubscriptionZip {
		respondError(w, http.StatusBadRequest, "Type must be area or zip")
		return
	}

	h.subs.Add(req.Type, req.Value)
	respondJSON(w, http.StatusOK, h.subs.List())
}

// Remove handles DELETE /api/v1/subscriptions/{index}, removing by
// position.
func (h *SubscriptionHandler) Remove(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid index")
		return
	}
	h.subs.Remove(index)
	respondJSON(w, http.StatusOK, h.subs.List())
}
