package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wegift/auth-service/internal/domain"
	"github.com/wegift/auth-service/internal/repository"
	"github.com/wegift/auth-service/internal/utils"
)

const newPassword = "Bb2@bbbbbb"

func (s *AuthServiceSuite) TestRequestReset_UnknownEmailLooksLikeSuccess() {
	s.manager.RequestReset(s.ctx, "ghost@x.com")

	s.Empty(s.mailer.resets)
}

func (s *AuthServiceSuite) TestRequestReset_StoresOnlyTheHash() {
	credential := s.registerActive("hash@x.com")

	s.manager.RequestReset(s.ctx, "HASH@x.com")
	raw := s.mailer.resetToken("hash@x.com")
	s.Require().NotEmpty(raw)

	_, err := s.repos.ResetToken.Consume(s.ctx, raw)
	s.Error(err, "raw tokens are never stored")

	stored, err := s.repos.ResetToken.Consume(s.ctx, utils.HashLookupToken(raw))
	s.Require().NoError(err)
	s.Equal(credential.ID, stored.CredentialID)
	s.Equal(s.clock.Now().Add(30*time.Minute), stored.ExpiresAt)
}

func (s *AuthServiceSuite) TestResetPassword_Flow() {
	s.registerActive("flow@x.com")
	tokens := s.login("flow@x.com", true)

	s.manager.RequestReset(s.ctx, "flow@x.com")
	raw := s.mailer.resetToken("flow@x.com")

	s.Require().NoError(s.manager.ResetPassword(s.ctx, raw, newPassword))

	_, err := s.manager.Authenticate(s.ctx, "flow@x.com", testPassword)
	s.requireKind(err, domain.KindAuth)
	_, err = s.manager.Authenticate(s.ctx, "flow@x.com", newPassword)
	s.NoError(err)

	s.requireKind(s.manager.ResetPassword(s.ctx, raw, newPassword), domain.KindNotFound)

	_, err = s.manager.Refresh(s.ctx, tokens.SessionID, tokens.RefreshToken)
	s.requireKind(err, domain.KindAuth)

	s.Equal(int64(1), counterTotal(s.collect(), "auth.password_resets"))
}

func (s *AuthServiceSuite) TestResetPassword_KeepsSessionsWhenRevocationDisabled() {
	s.cfg.RevokeSessionsOnReset = false
	s.manager.cfg = s.cfg

	s.registerActive("keep@x.com")
	tokens := s.login("keep@x.com", false)

	s.manager.RequestReset(s.ctx, "keep@x.com")
	s.Require().NoError(s.manager.ResetPassword(s.ctx, s.mailer.resetToken("keep@x.com"), newPassword))

	_, err := s.manager.Refresh(s.ctx, tokens.SessionID, tokens.RefreshToken)
	s.NoError(err)
}

func (s *AuthServiceSuite) TestResetPassword_SecondRequestSupersedesFirst() {
	s.registerActive("twice@x.com")

	s.manager.RequestReset(s.ctx, "twice@x.com")
	first := s.mailer.resetToken("twice@x.com")
	s.manager.RequestReset(s.ctx, "twice@x.com")
	second := s.mailer.resetToken("twice@x.com")
	s.Require().NotEqual(first, second)

	s.requireKind(s.manager.ResetPassword(s.ctx, first, newPassword), domain.KindNotFound)
	s.NoError(s.manager.ResetPassword(s.ctx, second, newPassword))
}

func (s *AuthServiceSuite) TestResetPassword_ExpiredToken() {
	s.registerActive("slow@x.com")
	s.manager.RequestReset(s.ctx, "slow@x.com")
	raw := s.mailer.resetToken("slow@x.com")

	s.clock.Advance(31 * time.Minute)

	s.requireKind(s.manager.ResetPassword(s.ctx, raw, newPassword), domain.KindAuth)
	s.requireKind(s.manager.ResetPassword(s.ctx, raw, newPassword), domain.KindNotFound)
}

func (s *AuthServiceSuite) TestResetPassword_PolicyCheckedFirst() {
	s.registerActive("weak@x.com")
	s.manager.RequestReset(s.ctx, "weak@x.com")
	raw := s.mailer.resetToken("weak@x.com")

	s.requireKind(s.manager.ResetPassword(s.ctx, raw, "short"), domain.KindValidation)
	s.requireKind(s.manager.ResetPassword(s.ctx, raw, newPassword+strings.Repeat("b", 63)), domain.KindValidation)
	s.requireKind(s.manager.ResetPassword(s.ctx, "", newPassword), domain.KindValidation)

	s.NoError(s.manager.ResetPassword(s.ctx, raw, newPassword), "a rejected password does not burn the token")
}

func (s *AuthServiceSuite) TestResetPassword_DeletedCredential() {
	credential := s.registerActive("gone@x.com")
	s.manager.RequestReset(s.ctx, "gone@x.com")
	raw := s.mailer.resetToken("gone@x.com")

	s.Require().NoError(s.repos.Credential.Delete(s.ctx, credential.ID))

	s.requireKind(s.manager.ResetPassword(s.ctx, raw, newPassword), domain.KindNotFound)
}

// unrevokableSessions fails every bulk revocation
type unrevokableSessions struct {
	repository.SessionRepository
}

func (unrevokableSessions) RevokeAllForCredential(context.Context, string, time.Time) (int64, error) {
	return 0, errors.New("connection reset")
}

func (s *AuthServiceSuite) TestResetPassword_RevocationFailureKeepsReset() {
	s.registerActive("partial@x.com")
	s.manager.sessions = unrevokableSessions{SessionRepository: s.repos.Session}

	s.manager.RequestReset(s.ctx, "partial@x.com")
	raw := s.mailer.resetToken("partial@x.com")

	s.NoError(s.manager.ResetPassword(s.ctx, raw, newPassword))

	_, err := s.manager.Authenticate(s.ctx, "partial@x.com", newPassword)
	s.NoError(err)
	s.requireKind(s.manager.ResetPassword(s.ctx, raw, newPassword), domain.KindNotFound)
}
