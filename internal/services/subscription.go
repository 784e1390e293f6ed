package services

import (
	"strings"
	"sync"

	"github.com/stadtmeldung/report-server/internal/models"
	"github.com/stadtmeldung/report-server/internal/storage"
	"go.uber.org/zap"
)

// SubscriptionService keeps the area/zip watch rules. Rules belong to the
// browser profile, not to a user. The report service consults Match on
// create and status-change events.
type SubscriptionService struct {
	store  storage.Store
	logger *zap.SugaredLogger

	mu   sync.Mutex
	subs []models.Subscription
}

// NewSubscriptionService loads the persisted rules; a missing or corrupt
// snapshot falls back to an empty list.
func NewSubscriptionService(store storage.Store, logger *zap.SugaredLogger) *SubscriptionService {
	s := &SubscriptionService{store: store, logger: logger}
	if err := store.Get(storage.KeySubscriptions, &s.subs); err != nil && err != storage.ErrNotFound {
		logger.Warnw("Failed to load subscriptions, starting empty", "error", err)
	}
	return s
}

// Add appends a rule unless one with the same type and case-insensitively
// equal value already exists. Empty values are ignored.
func (s *SubscriptionService) Add(typ models.SubscriptionType, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.Type == typ && strings.EqualFold(sub.Value, value) {
			return
		}
	}
	s.subs = append(s.subs, models.Subscription{Type: typ, Value: value})
	s.persistLocked()
}

// Remove drops the rule at the given position. Out-of-range indexes are
// ignored.
func (s *SubscriptionService) Remove(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.subs) {
		return
	}
	s.subs = append(s.subs[:index], s.subs[index+1:]...)
	s.persistLocked()
}

// List returns a copy of the current rules in insertion order.
func (s *SubscriptionService) List() []models.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Subscription, len(s.subs))
	copy(out, s.subs)
	return out
}

// Match reports whether any rule matches the given area/zip pair.
func (s *SubscriptionService) Match(area, zip string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.Matches(area, zip) {
			return true
		}
	}
	return false
}

func (s *SubscriptionService) persistLocked() {
	if err := s.store.Put(storage.KeySubscriptions, s.subs); err != nil {
		s.logger.Warnw("Failed to persist subscriptions", "error", err)
	}
}
