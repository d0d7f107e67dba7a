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

const credentialColumns = `id, email, password_hash, is_active, is_suspended, role, accepted_terms, birth_date, created_at, updated_at`

// credentialRepository implements CredentialRepository interface
type credentialRepository struct {
	db *database.Postgres
}

// NewCredentialRepository creates a new credential repository
func NewCredentialRepository(db *database.Postgres) CredentialRepository {
	return &credentialRepository{db: db}
}

// Create inserts a credential; the unique index on lower(email) is the authoritative duplicate check
func (r *credentialRepository) Create(ctx context.Context, c domain.Credential) (domain.Credential, error) {
	query := `
		INSERT INTO credentials (` + credentialColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Role == "" {
		c.Role = domain.RoleUser
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}

	var birthDate sql.NullTime
	if !c.BirthDate.IsZero() {
		birthDate = sql.NullTime{Time: c.BirthDate, Valid: true}
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		c.ID,
		c.Email,
		c.PasswordHash,
		c.IsActive,
		c.IsSuspended,
		string(c.Role),
		c.AcceptedTerms,
		birthDate,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Credential{}, fmt.Errorf("credential with email %s already exists: %w", c.Email, ErrDuplicateEmail)
		}
		return domain.Credential{}, fmt.Errorf("failed to create credential: %w", err)
	}

	return c, nil
}

// GetByEmail retrieves a credential by email, ignoring case
func (r *credentialRepository) GetByEmail(ctx context.Context, email string) (domain.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE lower(email) = lower($1)`

	c, err := scanCredential(r.db.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Credential{}, fmt.Errorf("credential with email %s not found: %w", email, ErrNotFound)
		}
		return domain.Credential{}, fmt.Errorf("failed to get credential by email: %w", err)
	}

	return c, nil
}

// GetByID retrieves a credential by ID
func (r *credentialRepository) GetByID(ctx context.Context, id string) (domain.Credential, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Credential{}, fmt.Errorf("credential with id %s not found: %w", id, ErrNotFound)
	}

	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE id = $1`

	c, err := scanCredential(r.db.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Credential{}, fmt.Errorf("credential with id %s not found: %w", id, ErrNotFound)
		}
		return domain.Credential{}, fmt.Errorf("failed to get credential by id: %w", err)
	}

	return c, nil
}

// SetActive marks the credential as activated
func (r *credentialRepository) SetActive(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE credentials SET is_active = TRUE, updated_at = $2 WHERE id = $1`

	result, err := r.db.DB.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to activate credential: %w", err)
	}

	return expectAffected(result, fmt.Errorf("credential with id %s not found: %w", id, ErrNotFound))
}

// UpdatePasswordHash overwrites the stored password hash
func (r *credentialRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string, at time.Time) error {
	query := `UPDATE credentials SET password_hash = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.DB.ExecContext(ctx, query, id, passwordHash, at)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}

	return expectAffected(result, fmt.Errorf("credential with id %s not found: %w", id, ErrNotFound))
}

// Delete removes a credential; sessions, reset tokens and identity links cascade
func (r *credentialRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM credentials WHERE id = $1`

	result, err := r.db.DB.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	return expectAffected(result, fmt.Errorf("credential with id %s not found: %w", id, ErrNotFound))
}

func scanCredential(row *sql.Row) (domain.Credential, error) {
	var (
		c         domain.Credential
		role      string
		birthDate sql.NullTime
	)

	err := row.Scan(
		&c.ID,
		&c.Email,
		&c.PasswordHash,
		&c.IsActive,
		&c.IsSuspended,
		&role,
		&c.AcceptedTerms,
		&birthDate,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return domain.Credential{}, err
	}

	c.Role = domain.Role(role)
	if birthDate.Valid {
		c.BirthDate = birthDate.Time
	}

	return c, nil
}

func expectAffected(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return notFound
	}

	return nil
}
