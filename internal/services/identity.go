// Package services contains the state engine of the report server: report
// lifecycle, queries, analytics, subscriptions, identity, chat and forum.
// Each service owns its slice of state, persists it through the storage
// port, and is injected into handlers — no package-level state.
package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stadtmeldung/report-server/internal/models"
	"github.com/stadtmeldung/report-server/internal/storage"
	"go.uber.org/zap"
)

// IdentityService issues the persistent device identifier and the ephemeral
// demo user session. Roles are self-asserted at login; sessions are carried
// in a signed token and mirrored to storage so they survive restarts.
type IdentityService struct {
	store     storage.Store
	logger    *zap.SugaredLogger
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewIdentityService loads or creates nothing eagerly; device ids and
// sessions materialize on first use.
func NewIdentityService(store storage.Store, logger *zap.SugaredLogger, jwtSecret string, tokenTTL time.Duration) *IdentityService {
	return &IdentityService{
		store:     store,
		logger:    logger,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

// DeviceID returns the persisted device identifier, generating and
// persisting one on first call. The id is never regenerated while storage
// persists.
func (s *IdentityService) DeviceID() string {
	var id string
	if err := s.store.Get(storage.KeyDeviceID, &id); err == nil && id != "" {
		return id
	}
	id = uuid.NewString()
	if err := s.store.Put(storage.KeyDeviceID, id); err != nil {
		s.logger.Warnw("Failed to persist device id", "error", err)
	}
	return id
}

// Login creates a new session with a fresh id and the self-asserted role
// flags, persists it, and returns the session plus a signed token.
func (s *IdentityService) Login(name string, isAdmin, isModerator bool) (*models.User, string, error) {
	if name == "" {
		name = "Gast"
	}
	user := &models.User{
		ID:          uuid.NewString(),
		Name:        name,
		IsAdmin:     isAdmin,
		IsModerator: isModerator,
	}

	token, err := s.signToken(user)
	if err != nil {
		return nil, "", fmt.Errorf("sign session token: %w", err)
	}

	if err := s.store.Put(storage.KeySession, user); err != nil {
		s.logger.Warnw("Failed to persist session", "error", err)
	}

	s.logger.Infow("User logged in",
		"name", user.Name,
		"admin", user.IsAdmin,
		"moderator", user.IsModerator,
	)
	return user, token, nil
}

// Logout clears the persisted session.
func (s *IdentityService) Logout() {
	if err := s.store.Delete(storage.KeySession); err != nil {
		s.logger.Warnw("Failed to clear session", "error", err)
	}
}

// Session returns the persisted session, or nil when logged out.
func (s *IdentityService) Session() *models.User {
	var user models.User
	if err := s.store.Get(storage.KeySession, &user); err != nil {
		return nil
	}
	return &user
}

func (s *IdentityService) signToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":         user.ID,
		"name":        user.Name,
		"isAdmin":     user.IsAdmin,
		"isModerator": user.IsModerator,
		"exp":         time.Now().Add(s.tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ParseToken validates a session token and rebuilds the user from its
// claims. Returns an error for expired or tampered tokens.
func (s *IdentityService) ParseToken(tokenStr string) (*models.User, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("session token missing subject")
	}
	name, _ := claims["name"].(string)
	isAdmin, _ := claims["isAdmin"].(bool)
	isModerator, _ := claims["isModerator"].(bool)

	return &models.User{
		ID:          sub,
		Name:        name,
		IsAdmin:     isAdmin,
		IsModerator: isModerator,
	}, nil
}
