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

// sessionRepository implements SessionRepository interface
type sessionRepository struct {
	db *database.Postgres
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.Postgres) SessionRepository {
	return &sessionRepository{db: db}
}

// Create persists a new session
func (r *sessionRepository) Create(ctx context.Context, s domain.Session) (domain.Session, error) {
	query := `
		INSERT INTO sessions (id, credential_id, refresh_hash, user_agent, source_ip, remember, created_at, last_used_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.LastUsedAt.IsZero() {
		s.LastUsedAt = s.CreatedAt
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		s.ID,
		s.CredentialID,
		s.RefreshHash,
		s.UserAgent,
		s.SourceIP,
		s.Remember,
		s.CreatedAt,
		s.LastUsedAt,
		s.ExpiresAt,
	)
	if err != nil {
		return domain.Session{}, fmt.Errorf("failed to create session: %w", err)
	}

	return s, nil
}

// GetByID retrieves a session by ID regardless of its state
func (r *sessionRepository) GetByID(ctx context.Context, id string) (domain.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Session{}, fmt.Errorf("session with id %s not found: %w", id, ErrNotFound)
	}

	query := `
		SELECT id, credential_id, refresh_hash, user_agent, source_ip, remember, created_at, last_used_at, expires_at, revoked_at
		FROM sessions
		WHERE id = $1
	`

	var (
		s                   domain.Session
		userAgent, sourceIP sql.NullString
		revokedAt           sql.NullTime
	)

	err := r.db.DB.QueryRowContext(ctx, query, id).Scan(
		&s.ID,
		&s.CredentialID,
		&s.RefreshHash,
		&userAgent,
		&sourceIP,
		&s.Remember,
		&s.CreatedAt,
		&s.LastUsedAt,
		&s.ExpiresAt,
		&revokedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, fmt.Errorf("session with id %s not found: %w", id, ErrNotFound)
		}
		return domain.Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	if userAgent.Valid {
		s.UserAgent = &userAgent.String
	}
	if sourceIP.Valid {
		s.SourceIP = &sourceIP.String
	}
	if revokedAt.Valid {
		s.RevokedAt = &revokedAt.Time
	}

	return s, nil
}

// Rotate replaces the refresh hash with a compare-and-swap on the current hash
func (r *sessionRepository) Rotate(ctx context.Context, id, currentHash, newHash string, usedAt time.Time) error {
	query := `
		UPDATE sessions
		SET refresh_hash = $3, last_used_at = $4
		WHERE id = $1 AND refresh_hash = $2 AND revoked_at IS NULL AND expires_at > $4
	`

	result, err := r.db.DB.ExecContext(ctx, query, id, currentHash, newHash, usedAt)
	if err != nil {
		return fmt.Errorf("failed to rotate session: %w", err)
	}

	return expectAffected(result, fmt.Errorf("session %s: %w", id, ErrStaleSession))
}

// Revoke ends a session; revoking an unknown or already revoked session is a no-op
func (r *sessionRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}

	query := `UPDATE sessions SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`

	if _, err := r.db.DB.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	return nil
}

// RevokeAllForCredential ends every live session of a credential
func (r *sessionRepository) RevokeAllForCredential(ctx context.Context, credentialID string, at time.Time) (int64, error) {
	query := `UPDATE sessions SET revoked_at = $2 WHERE credential_id = $1 AND revoked_at IS NULL`

	result, err := r.db.DB.ExecContext(ctx, query, credentialID, at)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke sessions: %w", err)
	}

	revoked, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return revoked, nil
}
