package service

import (
	"context"
	"fmt"
	"time"

	"github.com/wegift/auth-service/pkg/database"
)

// SessionRevocationList handles logged out session ids in Redis. Access tokens
// are stateless, so a revoked session keeps an entry until its last access token expires.
type SessionRevocationList struct {
	redis *database.Redis
}

var _ RevocationList = (*SessionRevocationList)(nil)

// NewSessionRevocationList creates a new revocation list
func NewSessionRevocationList(redis *database.Redis) *SessionRevocationList {
	return &SessionRevocationList{redis: redis}
}

func revocationKey(sessionID string) string {
	return fmt.Sprintf("revoked:session:%s", sessionID)
}

// Add records a session as revoked for ttl
func (l *SessionRevocationList) Add(ctx context.Context, sessionID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := l.redis.Client.Set(ctx, revocationKey(sessionID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to add session to revocation list: %w", err)
	}
	return nil
}

// Contains checks if a session is in the revocation list
func (l *SessionRevocationList) Contains(ctx context.Context, sessionID string) (bool, error) {
	exists, err := l.redis.Client.Exists(ctx, revocationKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revocation list: %w", err)
	}
	return exists > 0, nil
}
