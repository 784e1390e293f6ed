package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/stadtmeldung/report-server/internal/services"
	"go.uber.org/zap"
)

// ChatHandler exposes the canned-response support chat.
type ChatHandler struct {
	chat   *services.ChatService
	logger *zap.SugaredLogger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat *services.ChatService, logger *zap.SugaredLogger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

// History handles GET /api/v1/chat.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.chat.Messages())
}

// Post handles POST /api/v1/chat, returning the user message plus the bot
// answer.
func (h *ChatHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		respondError(w, http.StatusBadRequest, "Text required")
		return
	}
	respondJSON(w, http.StatusOK, h.chat.Post(text))
}
