package services

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stadtmeldung/report-server/internal/models"
	"github.com/stadtmeldung/report-server/internal/storage"
	"go.uber.org/zap"
)

// ForumService is the discussion board: threads with flat comment lists.
// Anyone may post; deleting threads or comments requires a moderation role.
type ForumService struct {
	store  storage.Store
	logger *zap.SugaredLogger
	now    func() time.Time

	mu      sync.Mutex
	threads []models.ForumThread
	lastID  int64
}

// NewForumService loads the persisted board, seeding the welcome thread on
// first start.
func NewForumService(store storage.Store, logger *zap.SugaredLogger) *ForumService {
	s := &ForumService{store: store, logger: logger, now: time.Now}
	if err := store.Get(storage.KeyForum, &s.threads); err != nil {
		if err != storage.ErrNotFound {
			logger.Warnw("Failed to load forum, starting fresh", "error", err)
		}
		s.threads = []models.ForumThread{{
			ID:        1,
			Title:     "Begrüßung",
			Author:    "System",
			Text:      "Willkommen im Saalekreis-Forum! Bitte freundlich bleiben. 😊",
			CreatedAt: s.now().UnixMilli() - 3600000,
			Comments:  []models.ForumComment{},
		}}
	}
	for _, t := range s.threads {
		if t.ID > s.lastID {
			s.lastID = t.ID
		}
	}
	return s
}

// Threads returns the board newest-first. The comment lists are copied so
// concurrent replies and deletions never touch a returned snapshot.
func (s *ForumService) Threads() []models.ForumThread {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ForumThread, len(s.threads))
	copy(out, s.threads)
	for i := range out {
		comments := make([]models.ForumComment, len(out[i].Comments))
		copy(comments, out[i].Comments)
		out[i].Comments = comments
	}
	return out
}

// CreateThread opens a new thread. Title and text must be non-blank; the
// author defaults to "Gast" when no session exists.
func (s *ForumService) CreateThread(title, text string, author *models.User) (*models.ForumThread, error) {
	title = strings.TrimSpace(title)
	text = strings.TrimSpace(text)
	if title == "" || text == "" {
		return nil, ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id

	thread := models.ForumThread{
		ID:        id,
		Title:     title,
		Author:    authorName(author),
		Text:      text,
		CreatedAt: s.now().UnixMilli(),
		Comments:  []models.ForumComment{},
	}
	// Newest thread first, matching the board display order.
	s.threads = append([]models.ForumThread{thread}, s.threads...)
	s.persistLocked()
	return &thread, nil
}

// Reply appends a comment to the thread.
func (s *ForumService) Reply(threadID int64, text string, author *models.User) (*models.ForumComment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.threads {
		if s.threads[i].ID != threadID {
			continue
		}
		comment := models.ForumComment{
			ID:     uuid.NewString(),
			Author: authorName(author),
			Text:   text,
			At:     s.now().UnixMilli(),
		}
		s.threads[i].Comments = append(s.threads[i].Comments, comment)
		s.persistLocked()
		return &comment, nil
	}
	return nil, ErrNotFound
}

// DeleteThread removes a thread. Moderation role required.
func (s *ForumService) DeleteThread(threadID int64, actor *models.User) error {
	if !actor.IsStaff() {
		return ErrPermissionDenied
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.threads {
		if s.threads[i].ID == threadID {
			s.threads = append(s.threads[:i], s.threads[i+1:]...)
			s.persistLocked()
			return nil
		}
	}
	return ErrNotFound
}

// DeleteComment removes a single comment. Moderation role required.
func (s *ForumService) DeleteComment(threadID int64, commentID string, actor *models.User) error {
	if !actor.IsStaff() {
		return ErrPermissionDenied
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.threads {
		if s.threads[i].ID != threadID {
			continue
		}
		for j := range s.threads[i].Comments {
			if s.threads[i].Comments[j].ID == commentID {
				s.threads[i].Comments = append(s.threads[i].Comments[:j], s.threads[i].Comments[j+1:]...)
				s.persistLocked()
				return nil
			}
		}
		return ErrNotFound
	}
	return ErrNotFound
}

func authorName(u *models.User) string {
	if u == nil || u.Name == "" {
		return "Gast"
	}
	return u.Name
}

func (s *ForumService) persistLocked() {
	if err := s.store.Put(storage.KeyForum, s.threads); err != nil {
		s.logger.Warnw("Failed to persist forum", "error", err)
	}
}
