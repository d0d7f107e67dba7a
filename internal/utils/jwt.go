package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/wegift/auth-service/internal/domain"
)

// ErrTokenInvalid is returned for any token that fails verification
var ErrTokenInvalid = errors.New("token invalid")

const (
	purposeAccess     = "access"
	purposeActivation = "activation"
)

type tokenClaims struct {
	SessionID string `json:"sid,omitempty"`
	Role      string `json:"role,omitempty"`
	Purpose   string `json:"purpose"`
	jwt.RegisteredClaims
}

// JWTManager signs and verifies the service's JWTs
type JWTManager struct {
	secret        []byte
	issuer        string
	audience      string
	accessTTL     time.Duration
	activationTTL time.Duration
	now           func() time.Time
}

// JWTOption customizes a JWTManager
type JWTOption func(*JWTManager)

// WithClock replaces the wall clock used for issuing and validating tokens
func WithClock(now func() time.Time) JWTOption {
	return func(j *JWTManager) {
		j.now = now
	}
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secret, issuer, audience string, accessTTL, activationTTL time.Duration, opts ...JWTOption) *JWTManager {
	j := &JWTManager{
		secret:        []byte(secret),
		issuer:        issuer,
		audience:      audience,
		accessTTL:     accessTTL,
		activationTTL: activationTTL,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// AccessTokenTTL returns the fixed lifetime of access tokens
func (j *JWTManager) AccessTokenTTL() time.Duration {
	return j.accessTTL
}

// SignAccess issues an access token for the given session
func (j *JWTManager) SignAccess(claims domain.AccessClaims) (string, error) {
	return j.sign(claims.CredentialID, purposeAccess, j.accessTTL, func(c *tokenClaims) {
		c.SessionID = claims.SessionID
		c.Role = string(claims.Role)
	})
}

// VerifyAccess validates an access token and returns its claims
func (j *JWTManager) VerifyAccess(tokenString string) (domain.AccessClaims, error) {
	claims, err := j.verify(tokenString, purposeAccess)
	if err != nil {
		return domain.AccessClaims{}, err
	}
	if claims.SessionID == "" {
		return domain.AccessClaims{}, fmt.Errorf("%w: missing session id", ErrTokenInvalid)
	}

	return domain.AccessClaims{
		CredentialID: claims.Subject,
		SessionID:    claims.SessionID,
		Role:         domain.Role(claims.Role),
	}, nil
}

// SignActivation issues a token proving control of the registered email
func (j *JWTManager) SignActivation(credentialID string) (string, error) {
	return j.sign(credentialID, purposeActivation, j.activationTTL, nil)
}

// VerifyActivation validates an activation token and returns the credential id it binds
func (j *JWTManager) VerifyActivation(tokenString string) (string, error) {
	claims, err := j.verify(tokenString, purposeActivation)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (j *JWTManager) sign(subject, purpose string, ttl time.Duration, extra func(*tokenClaims)) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("failed to sign %s token: empty subject", purpose)
	}

	now := j.now()
	claims := &tokenClaims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    j.issuer,
			Audience:  jwt.ClaimStrings{j.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if extra != nil {
		extra(claims)
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", purpose, err)
	}

	return tokenString, nil
}

func (j *JWTManager) verify(tokenString, purpose string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return j.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.issuer),
		jwt.WithAudience(j.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Purpose != purpose {
		return nil, fmt.Errorf("%w: unexpected purpose %q", ErrTokenInvalid, claims.Purpose)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return claims, nil
}
