package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/stadtmeldung/report-server/internal/middleware"
	"github.com/stadtmeldung/report-server/internal/services"
	"go.uber.org/zap"
)

// ForumHandler exposes the discussion board.
type ForumHandler struct {
	forum  *services.ForumService
	logger *zap.SugaredLogger
}

// NewForumHandler creates a new forum handler
func NewForumHandler(forum *services.ForumService, logger *zap.SugaredLogger) *ForumHandler {
	return &ForumHandler{forum: forum, logger: logger}
}

// List handles GET /api/v1/forum.
func (h *ForumHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.forum.Threads())
}

// CreateThread handles POST /api/v1/forum.
func (h *ForumHandler) CreateThread(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	thread, err := h.forum.CreateThread(req.Title, req.Text, middleware.UserFrom(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, thread)
}

// Reply handles POST /api/v1/forum/{id}/comments.
func (h *ForumHandler) Reply(w http.ResponseWriter, r *http.Request) {
	threadID, ok := h.threadID(w, r)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	comment, err := h.forum.Reply(threadID, req.Text, middleware.UserFrom(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, comment)
}

// DeleteThread handles DELETE /api/v1/forum/{id} (moderation role).
func (h *ForumHandler) DeleteThread(w http.ResponseWriter, r *http.Request) {
	threadID, ok := h.threadID(w, r)
	if !ok {
		return
	}
	if err := h.forum.DeleteThread(threadID, middleware.UserFrom(r.Context())); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Deleted"})
}

// DeleteComment handles DELETE /api/v1/forum/{id}/comments/{cid}
// (moderation role).
func (h *ForumHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	threadID, ok := h.threadID(w, r)
	if !ok {
		return
	}
	commentID := chi.URLParam(r, "cid")
	if err := h.forum.DeleteComment(threadID, commentID, middleware.UserFrom(r.Context())); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Deleted"})
}

func (h *ForumHandler) threadID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid thread id")
		return 0, false
	}
	return id, true
}
