package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wegift/auth-service/internal/domain"
	"github.com/wegift/auth-service/internal/utils"
)

// SessionTokens is what the cookie writer needs after a login or refresh.
// The raw refresh secret never leaves the service in a response body.
type SessionTokens struct {
	CredentialID string
	SessionID    string
	AccessToken  string
	AccessTTL    time.Duration
	RefreshToken string
	RefreshTTL   time.Duration
	// Remember selects persistent refresh and sid cookies
	Remember bool
}

func (s *AuthManager) sessionTTL(remember bool) time.Duration {
	if remember {
		return s.cfg.RememberTTL
	}
	return s.cfg.RefreshTTL
}

// openSession mints an access token and a refresh secret and persists the session
func (s *AuthManager) openSession(ctx context.Context, credential domain.Credential, remember bool, userAgent, sourceIP string) (SessionTokens, error) {
	raw, err := utils.NewRefreshSecret()
	if err != nil {
		return SessionTokens{}, err
	}

	refreshHash, err := utils.HashRefresh(raw, s.cfg.RefreshHashCost)
	if err != nil {
		return SessionTokens{}, err
	}

	now := s.now().UTC()
	ttl := s.sessionTTL(remember)

	session, err := s.sessions.Create(ctx, domain.Session{
		ID:           uuid.NewString(),
		CredentialID: credential.ID,
		RefreshHash:  refreshHash,
		UserAgent:    optional(userAgent),
		SourceIP:     optional(sourceIP),
		Remember:     remember,
		CreatedAt:    now,
		LastUsedAt:   now,
		ExpiresAt:    now.Add(ttl),
	})
	if err != nil {
		return SessionTokens{}, fmt.Errorf("failed to save session: %w", err)
	}

	accessToken, err := s.jwt.SignAccess(domain.AccessClaims{
		CredentialID: credential.ID,
		SessionID:    session.ID,
		Role:         credential.Role,
	})
	if err != nil {
		return SessionTokens{}, err
	}

	return SessionTokens{
		CredentialID: credential.ID,
		SessionID:    session.ID,
		AccessToken:  accessToken,
		AccessTTL:    s.jwt.AccessTokenTTL(),
		RefreshToken: raw,
		RefreshTTL:   ttl,
		Remember:     remember,
	}, nil
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
