// Package handlers contains the HTTP request handlers of the StadtMeldung
// API. Handlers parse requests, call services, and return JSON responses.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stadtmeldung/report-server/internal/services"
)

// Helper: respond with JSON
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Helper: respond with error
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrPermissionDenied):
		respondError(w, http.StatusForbidden, "Nur Admin/Moderator.")
	case errors.Is(err, services.ErrNotFound):
		respondError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrNoIdentity):
		respondError(w, http.StatusBadRequest, "Voting derzeit nicht möglich – kein Nutzer/Device erkannt.")
	default:
		respondError(w, http.StatusInternalServerError, "Internal error")
	}
}
