package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/wegift/auth-service/internal/domain"
	"github.com/wegift/auth-service/internal/repository"
	"github.com/wegift/auth-service/internal/utils"
	"go.uber.org/zap"
)

const birthDateLayout = "2006-01-02"

// Client-facing messages. Authentication failures stay coarse on purpose.
const (
	msgInvalidCredentials = "invalid email or password"
	msgNotActivated       = "account not activated"
	msgSuspended          = "account suspended"
	msgInvalidToken       = "invalid or expired token"
	msgInvalidRefresh     = "invalid or expired refresh token"
	msgPasswordPolicy     = "password must be 8 to 72 bytes long and contain uppercase, lowercase, number and symbol"
)

// AuthConfig carries the tunables of the auth flows
type AuthConfig struct {
	BCryptCost            int
	RefreshHashCost       int
	RefreshTTL            time.Duration
	RememberTTL           time.Duration
	ResetTokenTTL         time.Duration
	RevokeSessionsOnReset bool
	// FrontendURL is the base of activation and reset links
	FrontendURL string
}

// Dependencies are the collaborators of the auth service
type Dependencies struct {
	Repositories *repository.Repositories
	JWT          *utils.JWTManager
	Revocations  RevocationList
	Profiles     ProfileClient
	Mailer       Mailer
	Metrics      *AuthMetrics
	Logger       *zap.Logger
}

// Option customizes the auth service
type Option func(*AuthManager)

// WithClock replaces the wall clock, e.g. to simulate token expiry in tests
func WithClock(now func() time.Time) Option {
	return func(s *AuthManager) {
		s.now = now
	}
}

// RegisterInput is the validated shape of a registration request
type RegisterInput struct {
	Email         string
	Password      string
	AcceptedTerms bool
	BirthDate     string
	FirstName     string
	LastName      string
}

// LoginInput carries the credentials and client metadata of a login
type LoginInput struct {
	Email     string
	Password  string
	Remember  bool
	UserAgent string
	SourceIP  string
}

// AuthManager implements AuthService and PasswordResetService over the repositories
type AuthManager struct {
	credentials repository.CredentialRepository
	sessions    repository.SessionRepository
	resetTokens repository.ResetTokenRepository
	jwt         *utils.JWTManager
	revocations RevocationList
	profiles    ProfileClient
	mailer      Mailer
	metrics     *AuthMetrics
	logger      *zap.Logger
	cfg         AuthConfig
	now         func() time.Time

	dummyOnce sync.Once
	dummy     string
}

// NewAuthManager creates the auth service
func NewAuthManager(deps Dependencies, cfg AuthConfig, opts ...Option) *AuthManager {
	s := &AuthManager{
		credentials: deps.Repositories.Credential,
		sessions:    deps.Repositories.Session,
		resetTokens: deps.Repositories.ResetToken,
		jwt:         deps.JWT,
		revocations: deps.Revocations,
		profiles:    deps.Profiles,
		mailer:      deps.Mailer,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		cfg:         cfg,
		now:         time.Now,
	}
	if s.metrics == nil {
		s.metrics = NopAuthMetrics()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// dummyHash is built lazily at the configured cost so a miss on email costs
// the same as a wrong password
func (s *AuthManager) dummyHash() string {
	s.dummyOnce.Do(func() {
		hash, err := utils.NewDummyHash(s.cfg.BCryptCost)
		if err != nil {
			s.logger.Error("failed to build dummy password hash", zap.Error(err))
			return
		}
		s.dummy = hash
	})
	return s.dummy
}

var (
	_ AuthService          = (*AuthManager)(nil)
	_ PasswordResetService = (*AuthManager)(nil)
)

// Register creates an inactive credential and its profile, then mails the activation link
func (s *AuthManager) Register(ctx context.Context, in RegisterInput) (domain.Credential, error) {
	if !in.AcceptedTerms {
		return domain.Credential{}, domain.NewValidationError("terms of service must be accepted")
	}

	email := strings.TrimSpace(in.Email)
	if !utils.ValidateEmail(email) {
		return domain.Credential{}, domain.NewValidationError("invalid email format")
	}

	if !utils.ValidatePassword(in.Password) {
		return domain.Credential{}, domain.NewValidationError(msgPasswordPolicy)
	}

	birthDate, err := time.Parse(birthDateLayout, in.BirthDate)
	if err != nil {
		return domain.Credential{}, domain.NewValidationError("birth date must use the YYYY-MM-DD format")
	}
	if birthDate.After(s.now()) {
		return domain.Credential{}, domain.NewValidationError("birth date cannot be in the future")
	}

	// Fast path only, the unique index decides
	_, err = s.credentials.GetByEmail(ctx, email)
	if err == nil {
		return domain.Credential{}, domain.NewConflictError("email already registered")
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.Credential{}, fmt.Errorf("failed to check credential existence: %w", err)
	}

	passwordHash, err := utils.HashPassword(in.Password, s.cfg.BCryptCost)
	if err != nil {
		return domain.Credential{}, err
	}

	now := s.now().UTC()
	credential, err := s.credentials.Create(ctx, domain.Credential{
		Email:         email,
		PasswordHash:  passwordHash,
		Role:          domain.RoleUser,
		AcceptedTerms: true,
		BirthDate:     birthDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return domain.Credential{}, domain.NewConflictError("email already registered")
		}
		return domain.Credential{}, fmt.Errorf("failed to create credential: %w", err)
	}

	if err := s.createProfile(ctx, credential, in.FirstName, in.LastName); err != nil {
		return domain.Credential{}, err
	}

	s.metrics.registered(ctx)
	s.sendActivation(ctx, credential)

	return credential, nil
}

// createProfile calls the user service and deletes the credential when it fails
func (s *AuthManager) createProfile(ctx context.Context, credential domain.Credential, firstName, lastName string) error {
	err := s.profiles.CreateProfile(ctx, domain.Profile{
		CredentialID: credential.ID,
		Email:        credential.Email,
		FirstName:    firstName,
		LastName:     lastName,
		BirthDate:    credential.BirthDate,
	})
	if err == nil {
		return nil
	}

	if delErr := s.credentials.Delete(ctx, credential.ID); delErr != nil {
		s.logger.Error("failed to roll back credential after profile failure",
			zap.String("credential_id", credential.ID),
			zap.Error(delErr),
		)
	}
	return fmt.Errorf("failed to create profile: %w", err)
}

func (s *AuthManager) sendActivation(ctx context.Context, credential domain.Credential) {
	token, err := s.jwt.SignActivation(credential.ID)
	if err != nil {
		s.logger.Error("failed to sign activation token", zap.String("credential_id", credential.ID), zap.Error(err))
		return
	}

	link := s.frontendLink("/activate", token)
	if err := s.mailer.SendActivation(ctx, credential.Email, link); err != nil {
		s.logger.Warn("failed to send activation email", zap.String("credential_id", credential.ID), zap.Error(err))
	}
}

func (s *AuthManager) frontendLink(path, token string) string {
	return strings.TrimRight(s.cfg.FrontendURL, "/") + path + "?" + url.Values{"token": {token}}.Encode()
}

// Activate marks the credential bound by an activation token as active
func (s *AuthManager) Activate(ctx context.Context, token string) error {
	credentialID, err := s.jwt.VerifyActivation(token)
	if err != nil {
		return domain.NewValidationError("invalid or expired activation token")
	}

	credential, err := s.credentials.GetByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NewNotFoundError("account not found")
		}
		return fmt.Errorf("failed to get credential: %w", err)
	}

	if credential.IsActive {
		return domain.NewValidationError("account already active")
	}

	if err := s.credentials.SetActive(ctx, credential.ID, s.now().UTC()); err != nil {
		return fmt.Errorf("failed to activate credential: %w", err)
	}

	return nil
}

// ResendActivation mails a fresh activation link to inactive accounts. It
// reports nothing so that callers cannot probe for registered emails.
func (s *AuthManager) ResendActivation(ctx context.Context, email string) {
	credential, err := s.credentials.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("failed to look up credential for activation resend", zap.Error(err))
		}
		return
	}

	if credential.IsActive {
		return
	}
	s.sendActivation(ctx, credential)
}

// Authenticate checks an email and password pair
func (s *AuthManager) Authenticate(ctx context.Context, email, password string) (domain.Credential, error) {
	credential, err := s.credentials.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.BurnPasswordCheck(password, s.dummyHash())
			return domain.Credential{}, domain.NewAuthError(msgInvalidCredentials)
		}
		return domain.Credential{}, fmt.Errorf("failed to get credential: %w", err)
	}

	if !utils.CheckPasswordHash(password, credential.PasswordHash) {
		return domain.Credential{}, domain.NewAuthError(msgInvalidCredentials)
	}

	if !credential.IsActive {
		return domain.Credential{}, domain.NewAuthError(msgNotActivated)
	}

	if credential.IsSuspended {
		return domain.Credential{}, domain.NewAuthError(msgSuspended)
	}

	return credential, nil
}

// Login authenticates and opens a new session
func (s *AuthManager) Login(ctx context.Context, in LoginInput) (SessionTokens, error) {
	credential, err := s.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		if domain.IsKind(err, domain.KindAuth) {
			s.metrics.login(ctx, "rejected")
		}
		return SessionTokens{}, err
	}

	tokens, err := s.openSession(ctx, credential, in.Remember, in.UserAgent, in.SourceIP)
	if err != nil {
		return SessionTokens{}, err
	}

	s.metrics.login(ctx, "success")
	return tokens, nil
}

// Refresh exchanges a session's refresh secret for a new access token and a rotated secret
func (s *AuthManager) Refresh(ctx context.Context, sessionID, rawRefresh string) (SessionTokens, error) {
	if sessionID == "" || rawRefresh == "" {
		s.metrics.refresh(ctx, "rejected")
		return SessionTokens{}, domain.NewAuthError(msgInvalidRefresh)
	}

	now := s.now().UTC()

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.refresh(ctx, "rejected")
			return SessionTokens{}, domain.NewAuthError(msgInvalidRefresh)
		}
		return SessionTokens{}, fmt.Errorf("failed to get session: %w", err)
	}

	if session.State(now) != domain.SessionActive {
		s.metrics.refresh(ctx, "rejected")
		return SessionTokens{}, domain.NewAuthError(msgInvalidRefresh)
	}

	if !utils.CompareRefresh(rawRefresh, session.RefreshHash) {
		// A stale or forged secret for a live session means the lineage may be stolen
		if err := s.endSession(ctx, session.ID, now); err != nil {
			return SessionTokens{}, err
		}
		s.metrics.reuse(ctx)
		s.logger.Warn("refresh secret mismatch, session revoked",
			zap.String("session_id", session.ID),
			zap.String("credential_id", session.CredentialID),
		)
		return SessionTokens{}, domain.NewAuthError(msgInvalidRefresh)
	}

	credential, err := s.credentials.GetByID(ctx, session.CredentialID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return SessionTokens{}, domain.NewAuthError(msgInvalidRefresh)
		}
		return SessionTokens{}, fmt.Errorf("failed to get credential: %w", err)
	}
	if !credential.CanAuthenticate() {
		s.metrics.refresh(ctx, "rejected")
		return SessionTokens{}, domain.NewAuthError(msgInvalidRefresh)
	}

	newRaw, err := utils.NewRefreshSecret()
	if err != nil {
		return SessionTokens{}, err
	}
	newHash, err := utils.HashRefresh(newRaw, s.cfg.RefreshHashCost)
	if err != nil {
		return SessionTokens{}, err
	}

	accessToken, err := s.jwt.SignAccess(domain.AccessClaims{
		CredentialID: credential.ID,
		SessionID:    session.ID,
		Role:         credential.Role,
	})
	if err != nil {
		return SessionTokens{}, err
	}

	if err := s.sessions.Rotate(ctx, session.ID, session.RefreshHash, newHash, now); err != nil {
		if errors.Is(err, repository.ErrStaleSession) {
			// Lost the race against a concurrent refresh or logout
			s.metrics.refresh(ctx, "conflict")
			return SessionTokens{}, domain.NewAuthError(msgInvalidRefresh)
		}
		return SessionTokens{}, fmt.Errorf("failed to rotate session: %w", err)
	}

	s.metrics.refresh(ctx, "success")

	return SessionTokens{
		CredentialID: credential.ID,
		SessionID:    session.ID,
		AccessToken:  accessToken,
		AccessTTL:    s.jwt.AccessTokenTTL(),
		RefreshToken: newRaw,
		RefreshTTL:   session.ExpiresAt.Sub(now),
		Remember:     session.Remember,
	}, nil
}

// Logout revokes a session. Unknown and already revoked sessions are not an error.
func (s *AuthManager) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.endSession(ctx, sessionID, s.now().UTC())
}

func (s *AuthManager) endSession(ctx context.Context, sessionID string, at time.Time) error {
	if err := s.sessions.Revoke(ctx, sessionID, at); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	if err := s.revocations.Add(ctx, sessionID, s.jwt.AccessTokenTTL()); err != nil {
		s.logger.Warn("failed to publish session revocation", zap.String("session_id", sessionID), zap.Error(err))
	}
	return nil
}

// EnsureAuthenticated verifies an access token and rejects tokens of revoked sessions
func (s *AuthManager) EnsureAuthenticated(ctx context.Context, accessToken string) (domain.AccessClaims, error) {
	claims, err := s.jwt.VerifyAccess(accessToken)
	if err != nil {
		return domain.AccessClaims{}, domain.NewAuthError(msgInvalidToken)
	}

	revoked, err := s.revocations.Contains(ctx, claims.SessionID)
	if err != nil {
		s.logger.Error("failed to check session revocation", zap.String("session_id", claims.SessionID), zap.Error(err))
		return domain.AccessClaims{}, domain.NewAuthError(msgInvalidToken)
	}
	if revoked {
		return domain.AccessClaims{}, domain.NewAuthError(msgInvalidToken)
	}

	return claims, nil
}

// GetCredential gets credential information
func (s *AuthManager) GetCredential(ctx context.Context, id string) (domain.Credential, error) {
	credential, err := s.credentials.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Credential{}, domain.NewNotFoundError("account not found")
		}
		return domain.Credential{}, fmt.Errorf("failed to get credential: %w", err)
	}
	return credential, nil
}
