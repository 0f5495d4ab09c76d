package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dhsdevclub/ticktock-api/internal/models"
	appErrors "github.com/dhsdevclub/ticktock-api/pkg/errors"
)

// SessionTokenStore remembers the most recent verified access token per user
// key, for the lifetime of the token. The garbage collector uses it to query
// the Calendar API on a user's behalf; users without a live session are
// simply skipped by the sweep. No refresh tokens are held anywhere.
type SessionTokenStore struct {
	cache  *redis.Client
	logger *zap.Logger
}

// NewSessionTokenStore constructs the store.
func NewSessionTokenStore(cache *redis.Client, logger *zap.Logger) *SessionTokenStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionTokenStore{cache: cache, logger: logger}
}

// Record stores the identity's token. Failures are logged, never surfaced;
// the session store is best-effort.
func (s *SessionTokenStore) Record(ctx context.Context, ident *models.Identity, ttl time.Duration) {
	if s.cache == nil || ttl <= 0 {
		return
	}
	if err := s.cache.Set(ctx, sessionKey(ident.Key), ident.Token, ttl).Err(); err != nil {
		s.logger.Warn("session token write failed", zap.Int64("user_key", ident.Key), zap.Error(err))
	}
}

// TokenFor returns the last verified token for a user key, or ErrNotFound
// when no live session exists.
func (s *SessionTokenStore) TokenFor(ctx context.Context, userKey int64) (string, error) {
	if s.cache == nil {
		return "", appErrors.Clone(appErrors.ErrNotFound, "no session store")
	}
	token, err := s.cache.Get(ctx, sessionKey(userKey)).Result()
	if err == redis.Nil {
		return "", appErrors.Clone(appErrors.ErrNotFound, "no live session for user")
	}
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "read session token")
	}
	return token, nil
}

func sessionKey(userKey int64) string {
	return fmt.Sprintf("session:token:%d", userKey)
}
