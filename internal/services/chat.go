package services

import (
	"regexp"
	"sync"
	"time"

	"github.com/stadtmeldung/report-server/internal/models"
	"github.com/stadtmeldung/report-server/internal/storage"
	"go.uber.org/zap"
)

// cannedRule pairs a trigger pattern with the bot's answer. Rules are
// checked in order, first match wins.
type cannedRule struct {
	pattern *regexp.Regexp
	answer  string
}

var cannedRules = []cannedRule{
	{regexp.MustCompile(`(?i)hallo|hi|hey`), "Hallo! Wie kann ich helfen? 😊"},
	{regexp.MustCompile(`(?i)status`), "Du kannst den Status deiner Meldung in der Liste sehen. Grün = erledigt."},
	{regexp.MustCompile(`(?i)konto|account|anonym`), "Du kannst anonym melden. Mit Login erhältst du Verlauf & Benachrichtigungen."},
	{regexp.MustCompile(`(?i)datenschutz|privacy`), "Wir speichern Daten nur lokal (Demo). Live-Geocoding nutzt Nominatim."},
}

const chatFallback = "Danke! Ein Teammitglied meldet sich, wenn Moderation aktiv ist. (Demo)"
const chatWelcome = "Willkommen beim StadtMeldung Chat! (Demo)"

// ChatService is the canned-response support chat. The log persists across
// restarts under its own storage key.
type ChatService struct {
	store  storage.Store
	logger *zap.SugaredLogger
	now    func() time.Time

	mu       sync.Mutex
	messages []models.ChatMessage
}

// NewChatService loads the persisted chat log, seeding the welcome line on
// first start.
func NewChatService(store storage.Store, logger *zap.SugaredLogger) *ChatService {
	s := &ChatService{store: store, logger: logger, now: time.Now}
	if err := store.Get(storage.KeyChat, &s.messages); err != nil {
		if err != storage.ErrNotFound {
			logger.Warnw("Failed to load chat log, starting fresh", "error", err)
		}
		s.messages = []models.ChatMessage{{From: "bot", Text: chatWelcome, At: s.now().UnixMilli()}}
	}
	return s
}

// Post appends the user's message and the matching canned answer, returning
// both. Blank input is ignored.
func (s *ChatService) Post(text string) []models.ChatMessage {
	if text == "" {
		return nil
	}

	answer := chatFallback
	for _, rule := range cannedRules {
		if rule.pattern.MatchString(text) {
			answer = rule.answer
			break
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	nowMs := s.now().UnixMilli()
	added := []models.ChatMessage{
		{From: "me", Text: text, At: nowMs},
		{From: "bot", Text: answer, At: nowMs},
	}
	s.messages = append(s.messages, added...)
	if err := s.store.Put(storage.KeyChat, s.messages); err != nil {
		s.logger.Warnw("Failed to persist chat log", "error", err)
	}
	return added
}

// Messages returns a copy of the chat log.
func (s *ChatService) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}
