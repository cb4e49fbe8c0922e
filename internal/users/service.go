package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/misicnenad/fith-on/internal/auth"
	"github.com/misicnenad/fith-on/internal/sections"
	"gorm.io/gorm"
)

const providerGoogle = "google"

// ErrInvalidIdentity indicates the claims did not contain a usable identifier.
var ErrInvalidIdentity = errors.New("users: invalid identity")

// ServiceConfig describes the dependencies required for user identity resolution.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
}

// Service resolves provider logins to user keys.
type Service struct {
	db    *gorm.DB
	now   func() time.Time
	cache sync.Map
}

// NewService constructs the identity service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		db:  cfg.Database,
		now: clock,
	}, nil
}

// ResolveUserKey returns the user key for a verified Google login. The first sign-in
// binds the Google subject to the account email, and later sign-ins keep that key even
// if the email on the Google account changes.
func (s *Service) ResolveUserKey(ctx context.Context, claims auth.GoogleClaims) (string, error) {
	subject := normalize(claims.Subject)
	if subject == "" {
		return "", ErrInvalidIdentity
	}

	cacheKey := providerGoogle + ":" + subject
	if cached, ok := s.cache.Load(cacheKey); ok {
		if userKey, ok := cached.(string); ok {
			s.touch(ctx, subject, claims)
			return userKey, nil
		}
	}

	var identity Identity
	err := s.db.WithContext(ctx).
		Where("provider = ? AND subject = ?", providerGoogle, subject).
		First(&identity).
		Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		key, keyErr := sections.NewUserKey(strings.ToLower(normalize(claims.Email)))
		if keyErr != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidIdentity, keyErr)
		}
		identity = Identity{
			Provider:    providerGoogle,
			Subject:     subject,
			UserKey:     key.String(),
			DisplayName: normalize(claims.Name),
			LastSeenAt:  s.now(),
		}
		if err := s.db.WithContext(ctx).Create(&identity).Error; err != nil {
			return "", err
		}
	case err != nil:
		return "", err
	default:
		s.touch(ctx, subject, claims)
	}

	s.cache.Store(cacheKey, identity.UserKey)
	return identity.UserKey, nil
}

func (s *Service) touch(ctx context.Context, subject string, claims auth.GoogleClaims) {
	updates := map[string]interface{}{"last_seen_at": s.now()}
	if name := normalize(claims.Name); name != "" {
		updates["user_display_name"] = name
	}
	_ = s.db.WithContext(ctx).Model(&Identity{}).
		Where("provider = ? AND subject = ?", providerGoogle, subject).
		Updates(updates).
		Error
}
