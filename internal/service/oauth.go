package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/wegift/auth-service/internal/domain"
	"github.com/wegift/auth-service/internal/repository"
	"github.com/wegift/auth-service/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	ProviderGoogle = "google"

	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// GoogleConfig builds the OAuth client configuration for Google sign-in
func GoogleConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}
}

// OAuthManager implements OAuthService for a single provider
type OAuthManager struct {
	auth        *AuthManager
	identities  repository.IdentityRepository
	provider    string
	config      *oauth2.Config
	userInfoURL string
}

var _ OAuthService = (*OAuthManager)(nil)

// OAuthOption customizes the OAuth manager
type OAuthOption func(*OAuthManager)

// WithUserInfoURL points identity lookups at another OpenID userinfo endpoint
func WithUserInfoURL(u string) OAuthOption {
	return func(m *OAuthManager) {
		m.userInfoURL = u
	}
}

// NewGoogleOAuth creates Google sign-in on top of the auth manager's sessions
func NewGoogleOAuth(auth *AuthManager, identities repository.IdentityRepository, config *oauth2.Config, opts ...OAuthOption) *OAuthManager {
	m := &OAuthManager{
		auth:        auth,
		identities:  identities,
		provider:    ProviderGoogle,
		config:      config,
		userInfoURL: googleUserInfoURL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AuthCodeURL returns the provider consent page for the given anti-CSRF state
func (m *OAuthManager) AuthCodeURL(state string) string {
	return m.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type userInfo struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

// ExchangeOAuthCode trades an authorization code for the provider's view of the user
func (m *OAuthManager) ExchangeOAuthCode(ctx context.Context, code string) (domain.ExternalIdentity, error) {
	if code == "" {
		return domain.ExternalIdentity{}, domain.NewValidationError("authorization code is required")
	}

	token, err := m.config.Exchange(ctx, code)
	if err != nil {
		m.auth.logger.Warn("oauth code exchange failed", zap.String("provider", m.provider), zap.Error(err))
		return domain.ExternalIdentity{}, domain.NewAuthError("oauth sign-in failed")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.userInfoURL, nil)
	if err != nil {
		return domain.ExternalIdentity{}, fmt.Errorf("failed to build userinfo request: %w", err)
	}

	resp, err := m.config.Client(ctx, token).Do(req)
	if err != nil {
		return domain.ExternalIdentity{}, fmt.Errorf("failed to fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.ExternalIdentity{}, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return domain.ExternalIdentity{}, fmt.Errorf("failed to decode userinfo: %w", err)
	}
	if info.Subject == "" {
		return domain.ExternalIdentity{}, domain.NewAuthError("oauth sign-in failed")
	}

	return domain.ExternalIdentity{
		Provider:       m.provider,
		ProviderUserID: info.Subject,
		Email:          info.Email,
		EmailVerified:  info.EmailVerified,
		GivenName:      info.GivenName,
		FamilyName:     info.FamilyName,
	}, nil
}

// LinkOrCreateCredential resolves an external identity to a local credential.
// An existing link wins, then a credential with the same verified email, and
// otherwise a new active credential without a usable password is created.
func (m *OAuthManager) LinkOrCreateCredential(ctx context.Context, identity domain.ExternalIdentity) (domain.Credential, error) {
	link, err := m.identities.GetByProvider(ctx, identity.Provider, identity.ProviderUserID)
	if err == nil {
		return m.auth.GetCredential(ctx, link.CredentialID)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.Credential{}, fmt.Errorf("failed to get identity link: %w", err)
	}

	if !identity.EmailVerified || !utils.ValidateEmail(identity.Email) {
		return domain.Credential{}, domain.NewAuthError("provider did not return a verified email")
	}

	credential, err := m.credentialForEmail(ctx, identity)
	if err != nil {
		return domain.Credential{}, err
	}

	email := identity.Email
	_, err = m.identities.Create(ctx, domain.IdentityLink{
		CredentialID:   credential.ID,
		Provider:       identity.Provider,
		ProviderUserID: identity.ProviderUserID,
		Email:          &email,
		CreatedAt:      m.auth.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateIdentity) {
			// A concurrent callback linked it first
			link, err := m.identities.GetByProvider(ctx, identity.Provider, identity.ProviderUserID)
			if err != nil {
				return domain.Credential{}, fmt.Errorf("failed to get identity link: %w", err)
			}
			return m.auth.GetCredential(ctx, link.CredentialID)
		}
		return domain.Credential{}, fmt.Errorf("failed to link identity: %w", err)
	}

	return credential, nil
}

func (m *OAuthManager) credentialForEmail(ctx context.Context, identity domain.ExternalIdentity) (domain.Credential, error) {
	now := m.auth.now().UTC()

	credential, err := m.auth.credentials.GetByEmail(ctx, identity.Email)
	if err == nil {
		if !credential.IsActive {
			// The provider has proven control of the mailbox
			if err := m.auth.credentials.SetActive(ctx, credential.ID, now); err != nil {
				return domain.Credential{}, fmt.Errorf("failed to activate credential: %w", err)
			}
			credential.IsActive = true
		}
		return credential, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.Credential{}, fmt.Errorf("failed to get credential: %w", err)
	}

	unusable, err := utils.NewRefreshSecret()
	if err != nil {
		return domain.Credential{}, err
	}
	passwordHash, err := utils.HashPassword(unusable, m.auth.cfg.BCryptCost)
	if err != nil {
		return domain.Credential{}, err
	}

	credential, err = m.auth.credentials.Create(ctx, domain.Credential{
		Email:         identity.Email,
		PasswordHash:  passwordHash,
		IsActive:      true,
		Role:          domain.RoleUser,
		AcceptedTerms: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return domain.Credential{}, domain.NewConflictError("email already registered")
		}
		return domain.Credential{}, fmt.Errorf("failed to create credential: %w", err)
	}

	if err := m.auth.createProfile(ctx, credential, identity.GivenName, identity.FamilyName); err != nil {
		return domain.Credential{}, err
	}
	m.auth.metrics.registered(ctx)

	return credential, nil
}

// LoginWithOAuth exchanges the code, resolves the credential and opens a remembered session
func (m *OAuthManager) LoginWithOAuth(ctx context.Context, code, userAgent, sourceIP string) (SessionTokens, error) {
	identity, err := m.ExchangeOAuthCode(ctx, code)
	if err != nil {
		return SessionTokens{}, err
	}

	credential, err := m.LinkOrCreateCredential(ctx, identity)
	if err != nil {
		return SessionTokens{}, err
	}

	if credential.IsSuspended {
		m.auth.metrics.login(ctx, "rejected")
		return SessionTokens{}, domain.NewAuthError(msgSuspended)
	}

	tokens, err := m.auth.openSession(ctx, credential, true, userAgent, sourceIP)
	if err != nil {
		return SessionTokens{}, err
	}

	m.auth.metrics.login(ctx, "success")
	return tokens, nil
}
