package handler

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/wegift/auth-service/internal/domain"
	"github.com/wegift/auth-service/internal/service"
)

type authServiceMock struct {
	mock.Mock
}

func (m *authServiceMock) Register(ctx context.Context, in service.RegisterInput) (domain.Credential, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(domain.Credential), args.Error(1)
}

func (m *authServiceMock) Activate(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *authServiceMock) ResendActivation(ctx context.Context, email string) {
	m.Called(ctx, email)
}

func (m *authServiceMock) Authenticate(ctx context.Context, email, password string) (domain.Credential, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(domain.Credential), args.Error(1)
}

func (m *authServiceMock) Login(ctx context.Context, in service.LoginInput) (service.SessionTokens, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(service.SessionTokens), args.Error(1)
}

func (m *authServiceMock) Refresh(ctx context.Context, sessionID, rawRefresh string) (service.SessionTokens, error) {
	args := m.Called(ctx, sessionID, rawRefresh)
	return args.Get(0).(service.SessionTokens), args.Error(1)
}

func (m *authServiceMock) Logout(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *authServiceMock) EnsureAuthenticated(ctx context.Context, accessToken string) (domain.AccessClaims, error) {
	args := m.Called(ctx, accessToken)
	return args.Get(0).(domain.AccessClaims), args.Error(1)
}

func (m *authServiceMock) GetCredential(ctx context.Context, id string) (domain.Credential, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Credential), args.Error(1)
}

type resetServiceMock struct {
	mock.Mock
}

func (m *resetServiceMock) RequestReset(ctx context.Context, email string) {
	m.Called(ctx, email)
}

func (m *resetServiceMock) ResetPassword(ctx context.Context, token, newPassword string) error {
	return m.Called(ctx, token, newPassword).Error(0)
}

type oauthServiceMock struct {
	mock.Mock
}

func (m *oauthServiceMock) AuthCodeURL(state string) string {
	return m.Called(state).String(0)
}

func (m *oauthServiceMock) ExchangeOAuthCode(ctx context.Context, code string) (domain.ExternalIdentity, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(domain.ExternalIdentity), args.Error(1)
}

func (m *oauthServiceMock) LinkOrCreateCredential(ctx context.Context, identity domain.ExternalIdentity) (domain.Credential, error) {
	args := m.Called(ctx, identity)
	return args.Get(0).(domain.Credential), args.Error(1)
}

func (m *oauthServiceMock) LoginWithOAuth(ctx context.Context, code, userAgent, sourceIP string) (service.SessionTokens, error) {
	args := m.Called(ctx, code, userAgent, sourceIP)
	return args.Get(0).(service.SessionTokens), args.Error(1)
}
