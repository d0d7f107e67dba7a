package repository

import (
	"context"
	"time"

	"github.com/wegift/auth-service/internal/domain"
)

// CredentialRepository defines methods for credential operations
type CredentialRepository interface {
	Create(ctx context.Context, credential domain.Credential) (domain.Credential, error)
	GetByEmail(ctx context.Context, email string) (domain.Credential, error)
	GetByID(ctx context.Context, id string) (domain.Credential, error)
	SetActive(ctx context.Context, id string, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id, passwordHash string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

// SessionRepository is the session ledger
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) (domain.Session, error)
	GetByID(ctx context.Context, id string) (domain.Session, error)
	// Rotate swaps the refresh hash only if currentHash is still stored and the session is active
	Rotate(ctx context.Context, id, currentHash, newHash string, usedAt time.Time) error
	Revoke(ctx context.Context, id string, at time.Time) error
	RevokeAllForCredential(ctx context.Context, credentialID string, at time.Time) (int64, error)
}

// ResetTokenRepository stores password reset grants
type ResetTokenRepository interface {
	// Upsert replaces any existing token of the same credential
	Upsert(ctx context.Context, token domain.PasswordResetToken) (domain.PasswordResetToken, error)
	// Consume deletes and returns the token with the given hash
	Consume(ctx context.Context, tokenHash string) (domain.PasswordResetToken, error)
}

// IdentityRepository defines methods for OAuth identity links
type IdentityRepository interface {
	Create(ctx context.Context, link domain.IdentityLink) (domain.IdentityLink, error)
	GetByProvider(ctx context.Context, provider, providerUserID string) (domain.IdentityLink, error)
}
