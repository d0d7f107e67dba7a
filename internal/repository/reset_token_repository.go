package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wegift/auth-service/internal/domain"
	"github.com/wegift/auth-service/pkg/database"
)

// resetTokenRepository implements ResetTokenRepository interface
type resetTokenRepository struct {
	db *database.Postgres
}

// NewResetTokenRepository creates a new password reset token repository
func NewResetTokenRepository(db *database.Postgres) ResetTokenRepository {
	return &resetTokenRepository{db: db}
}

// Upsert stores a reset token, superseding the credential's previous one
func (r *resetTokenRepository) Upsert(ctx context.Context, t domain.PasswordResetToken) (domain.PasswordResetToken, error) {
	query := `
		INSERT INTO password_reset_tokens (id, credential_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (credential_id) DO UPDATE
		SET id = EXCLUDED.id,
			token_hash = EXCLUDED.token_hash,
			expires_at = EXCLUDED.expires_at,
			created_at = EXCLUDED.created_at
		RETURNING id, credential_id, token_hash, expires_at, created_at
	`

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	var stored domain.PasswordResetToken
	err := r.db.DB.QueryRowContext(ctx, query, t.ID, t.CredentialID, t.TokenHash, t.ExpiresAt, t.CreatedAt).Scan(
		&stored.ID,
		&stored.CredentialID,
		&stored.TokenHash,
		&stored.ExpiresAt,
		&stored.CreatedAt,
	)
	if err != nil {
		return domain.PasswordResetToken{}, fmt.Errorf("failed to upsert reset token: %w", err)
	}

	return stored, nil
}

// Consume atomically removes the token so that it can be redeemed at most once
func (r *resetTokenRepository) Consume(ctx context.Context, tokenHash string) (domain.PasswordResetToken, error) {
	query := `
		DELETE FROM password_reset_tokens
		WHERE token_hash = $1
		RETURNING id, credential_id, token_hash, expires_at, created_at
	`

	var t domain.PasswordResetToken
	err := r.db.DB.QueryRowContext(ctx, query, tokenHash).Scan(
		&t.ID,
		&t.CredentialID,
		&t.TokenHash,
		&t.ExpiresAt,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PasswordResetToken{}, fmt.Errorf("reset token not found: %w", ErrNotFound)
		}
		return domain.PasswordResetToken{}, fmt.Errorf("failed to consume reset token: %w", err)
	}

	return t, nil
}
