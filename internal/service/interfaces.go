package service

import (
	"context"
	"time"

	"github.com/wegift/auth-service/internal/domain"
)

// AuthService covers the credential store and the session manager
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (domain.Credential, error)
	Activate(ctx context.Context, token string) error
	ResendActivation(ctx context.Context, email string)
	Authenticate(ctx context.Context, email, password string) (domain.Credential, error)
	Login(ctx context.Context, in LoginInput) (SessionTokens, error)
	Refresh(ctx context.Context, sessionID, rawRefresh string) (SessionTokens, error)
	Logout(ctx context.Context, sessionID string) error
	EnsureAuthenticated(ctx context.Context, accessToken string) (domain.AccessClaims, error)
	GetCredential(ctx context.Context, id string) (domain.Credential, error)
}

// PasswordResetService runs the forgot/reset password flow
type PasswordResetService interface {
	// RequestReset never reports whether the email is registered
	RequestReset(ctx context.Context, email string)
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// OAuthService signs users in through an external identity provider
type OAuthService interface {
	AuthCodeURL(state string) string
	ExchangeOAuthCode(ctx context.Context, code string) (domain.ExternalIdentity, error)
	LinkOrCreateCredential(ctx context.Context, identity domain.ExternalIdentity) (domain.Credential, error)
	LoginWithOAuth(ctx context.Context, code, userAgent, sourceIP string) (SessionTokens, error)
}

// ProfileClient creates the user-facing profile owned by the user service
type ProfileClient interface {
	CreateProfile(ctx context.Context, profile domain.Profile) error
}

// Mailer dispatches transactional emails through the notification service
type Mailer interface {
	SendActivation(ctx context.Context, email, link string) error
	SendPasswordReset(ctx context.Context, email, link string) error
}

// RevocationList remembers logged out sessions until their access tokens expire
type RevocationList interface {
	Add(ctx context.Context, sessionID string, ttl time.Duration) error
	Contains(ctx context.Context, sessionID string) (bool, error)
}
