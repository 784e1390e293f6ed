package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/stadtmeldung/report-server/internal/geocode"
	"go.uber.org/zap"
)

// GeocodeHandler resolves free-text addresses through the configured
// resolver (demo table or live Nominatim).
type GeocodeHandler struct {
	resolver geocode.Resolver
	logger   *zap.SugaredLogger
}

// NewGeocodeHandler creates a new geocode handler
func NewGeocodeHandler(resolver geocode.Resolver, logger *zap.SugaredLogger) *GeocodeHandler {
	return &GeocodeHandler{resolver: resolver, logger: logger}
}

// Resolve handles GET /api/v1/geocode?q=... A miss is informational, not an
// internal failure. The resolver honors request-context cancellation, so a
// client that moved on simply drops the stale result.
func (h *GeocodeHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondError(w, http.StatusBadRequest, "Query parameter q required")
		return
	}

	loc, err := h.resolver.Resolve(r.Context(), query)
	if err != nil {
		if errors.Is(err, geocode.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Adresse nicht gefunden")
			return
		}
		h.logger.Warnw("Geocoding failed", "query", query, "error", err)
		respondError(w, http.StatusBadGateway, "Geocoding failed")
		return
	}
	respondJSON(w, http.StatusOK, loc)
}

// Areas handles GET /api/v1/geocode/areas, the known demo districts for the
// area filter dropdown.
func (h *GeocodeHandler) Areas(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, geocode.KnownAreas())
}
