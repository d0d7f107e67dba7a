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

// identityRepository implements IdentityRepository interface
type identityRepository struct {
	db *database.Postgres
}

// NewIdentityRepository creates a new OAuth identity link repository
func NewIdentityRepository(db *database.Postgres) IdentityRepository {
	return &identityRepository{db: db}
}

// Create links a provider account to a credential
func (r *identityRepository) Create(ctx context.Context, link domain.IdentityLink) (domain.IdentityLink, error) {
	query := `
		INSERT INTO identity_links (id, credential_id, provider, provider_user_id, email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		link.ID,
		link.CredentialID,
		link.Provider,
		link.ProviderUserID,
		link.Email,
		link.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.IdentityLink{}, fmt.Errorf("%s identity %s: %w", link.Provider, link.ProviderUserID, ErrDuplicateIdentity)
		}
		return domain.IdentityLink{}, fmt.Errorf("failed to create identity link: %w", err)
	}

	return link, nil
}

// GetByProvider retrieves a link by provider and provider user ID
func (r *identityRepository) GetByProvider(ctx context.Context, provider, providerUserID string) (domain.IdentityLink, error) {
	query := `
		SELECT id, credential_id, provider, provider_user_id, email, created_at
		FROM identity_links
		WHERE provider = $1 AND provider_user_id = $2
	`

	var (
		link  domain.IdentityLink
		email sql.NullString
	)

	err := r.db.DB.QueryRowContext(ctx, query, provider, providerUserID).Scan(
		&link.ID,
		&link.CredentialID,
		&link.Provider,
		&link.ProviderUserID,
		&email,
		&link.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.IdentityLink{}, fmt.Errorf("identity link not found: %w", ErrNotFound)
		}
		return domain.IdentityLink{}, fmt.Errorf("failed to get identity link: %w", err)
	}

	if email.Valid {
		link.Email = &email.String
	}

	return link, nil
}
