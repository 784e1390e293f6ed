package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/stadtmeldung/report-server/internal/services"
	"go.uber.org/zap"
)

// AuthHandler exposes the demo identity endpoints: login, logout and the
// persistent device identifier.
type AuthHandler struct {
	identity *services.IdentityService
	logger   *zap.SugaredLogger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(identity *services.IdentityService, logger *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{identity: identity, logger: logger}
}

type loginRequest struct {
	Name        string `json:"name"`
	IsAdmin     bool   `json:"isAdmin"`
	IsModerator bool   `json:"isModerator"`
}

// Login handles POST /api/v1/auth/login. Roles are self-asserted — this is
// a demo, there are no credentials.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, token, err := h.identity.Login(req.Name, req.IsAdmin, req.IsModerator)
	if err != nil {
		h.logger.Errorw("Login failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user":  user,
		"token": token,
	})
}

// Logout handles POST /api/v1/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.identity.Logout()
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// Device handles GET /api/v1/auth/device, returning the stable anonymous
// device identifier (generated on first call).
func (h *AuthHandler) Device(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"deviceId": h.identity.DeviceID()})
}
