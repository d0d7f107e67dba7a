package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wegift/auth-service/internal/domain"
	"github.com/wegift/auth-service/internal/repository"
	"github.com/wegift/auth-service/internal/utils"
	"go.uber.org/zap"
)

// RequestReset issues a reset token for a registered email and mails the link.
// Unknown emails and delivery failures look exactly like success to the caller.
func (s *AuthManager) RequestReset(ctx context.Context, email string) {
	credential, err := s.credentials.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("failed to look up credential for password reset", zap.Error(err))
		}
		return
	}

	raw, err := utils.NewResetToken()
	if err != nil {
		s.logger.Error("failed to generate reset token", zap.Error(err))
		return
	}

	now := s.now().UTC()
	_, err = s.resetTokens.Upsert(ctx, domain.PasswordResetToken{
		CredentialID: credential.ID,
		TokenHash:    utils.HashLookupToken(raw),
		ExpiresAt:    now.Add(s.cfg.ResetTokenTTL),
		CreatedAt:    now,
	})
	if err != nil {
		s.logger.Error("failed to store reset token", zap.String("credential_id", credential.ID), zap.Error(err))
		return
	}

	link := s.frontendLink("/reset-password", raw)
	if err := s.mailer.SendPasswordReset(ctx, credential.Email, link); err != nil {
		s.logger.Warn("failed to send password reset email", zap.String("credential_id", credential.ID), zap.Error(err))
	}
}

// ResetPassword redeems a reset token once and replaces the password hash
func (s *AuthManager) ResetPassword(ctx context.Context, token, newPassword string) error {
	if !utils.ValidatePassword(newPassword) {
		return domain.NewValidationError(msgPasswordPolicy)
	}
	if token == "" {
		return domain.NewValidationError("reset token is required")
	}

	resetToken, err := s.resetTokens.Consume(ctx, utils.HashLookupToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NewNotFoundError("invalid or expired reset token")
		}
		return fmt.Errorf("failed to consume reset token: %w", err)
	}

	now := s.now().UTC()
	if resetToken.IsExpired(now) {
		return domain.NewAuthError("invalid or expired reset token")
	}

	passwordHash, err := utils.HashPassword(newPassword, s.cfg.BCryptCost)
	if err != nil {
		return err
	}

	if err := s.credentials.UpdatePasswordHash(ctx, resetToken.CredentialID, passwordHash, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NewNotFoundError("account not found")
		}
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.metrics.passwordReset(ctx)

	if !s.cfg.RevokeSessionsOnReset {
		return nil
	}

	// The new password is already in place, so a failed revoke must not report the reset as failed
	revoked, err := s.sessions.RevokeAllForCredential(ctx, resetToken.CredentialID, now)
	if err != nil {
		s.logger.Error("failed to revoke sessions after password reset",
			zap.String("credential_id", resetToken.CredentialID),
			zap.Error(err),
		)
		return nil
	}
	s.logger.Info("password reset completed",
		zap.String("credential_id", resetToken.CredentialID),
		zap.Int64("revoked_sessions", revoked),
	)

	return nil
}
