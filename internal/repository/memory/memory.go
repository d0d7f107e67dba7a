// Package memory provides map-backed repositories with the same semantics as
// the Postgres ones. They back service and handler tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wegift/auth-service/internal/domain"
	"github.com/wegift/auth-service/internal/repository"
)

// NewRepositories returns an empty in-memory repository set
func NewRepositories() *repository.Repositories {
	store := &store{
		credentials: make(map[string]domain.Credential),
		sessions:    make(map[string]domain.Session),
		resetTokens: make(map[string]domain.PasswordResetToken),
		identities:  make(map[string]domain.IdentityLink),
	}

	return &repository.Repositories{
		Credential: &credentialRepository{store},
		Session:    &sessionRepository{store},
		ResetToken: &resetTokenRepository{store},
		Identity:   &identityRepository{store},
	}
}

// store is shared so that deleting a credential cascades like the foreign keys do
type store struct {
	mu          sync.Mutex
	credentials map[string]domain.Credential
	sessions    map[string]domain.Session
	resetTokens map[string]domain.PasswordResetToken // keyed by credential id
	identities  map[string]domain.IdentityLink       // keyed by provider/provider user id
}

type credentialRepository struct{ *store }

func (r *credentialRepository) Create(_ context.Context, c domain.Credential) (domain.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.credentials {
		if domain.NormalizeEmail(existing.Email) == domain.NormalizeEmail(c.Email) {
			return domain.Credential{}, fmt.Errorf("credential with email %s already exists: %w", c.Email, repository.ErrDuplicateEmail)
		}
	}

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

	r.credentials[c.ID] = c
	return c, nil
}

func (r *credentialRepository) GetByEmail(_ context.Context, email string) (domain.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.credentials {
		if domain.NormalizeEmail(c.Email) == domain.NormalizeEmail(email) {
			return c, nil
		}
	}
	return domain.Credential{}, fmt.Errorf("credential with email %s not found: %w", email, repository.ErrNotFound)
}

func (r *credentialRepository) GetByID(_ context.Context, id string) (domain.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.credentials[id]
	if !ok {
		return domain.Credential{}, fmt.Errorf("credential with id %s not found: %w", id, repository.ErrNotFound)
	}
	return c, nil
}

func (r *credentialRepository) SetActive(_ context.Context, id string, at time.Time) error {
	return r.update(id, func(c *domain.Credential) {
		c.IsActive = true
		c.UpdatedAt = at
	})
}

func (r *credentialRepository) UpdatePasswordHash(_ context.Context, id, passwordHash string, at time.Time) error {
	return r.update(id, func(c *domain.Credential) {
		c.PasswordHash = passwordHash
		c.UpdatedAt = at
	})
}

func (r *credentialRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.credentials[id]; !ok {
		return fmt.Errorf("credential with id %s not found: %w", id, repository.ErrNotFound)
	}
	delete(r.credentials, id)
	delete(r.resetTokens, id)
	for sid, s := range r.sessions {
		if s.CredentialID == id {
			delete(r.sessions, sid)
		}
	}
	for key, link := range r.identities {
		if link.CredentialID == id {
			delete(r.identities, key)
		}
	}
	return nil
}

func (r *credentialRepository) update(id string, fn func(*domain.Credential)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.credentials[id]
	if !ok {
		return fmt.Errorf("credential with id %s not found: %w", id, repository.ErrNotFound)
	}
	fn(&c)
	r.credentials[id] = c
	return nil
}

// Suspend flags a credential as suspended. Suspension has no HTTP surface,
// tests use this to reach the suspended branches.
func Suspend(repos *repository.Repositories, id string) error {
	r, ok := repos.Credential.(*credentialRepository)
	if !ok {
		return fmt.Errorf("not an in-memory credential repository")
	}
	return r.update(id, func(c *domain.Credential) { c.IsSuspended = true })
}

type sessionRepository struct{ *store }

func (r *sessionRepository) Create(_ context.Context, s domain.Session) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.credentials[s.CredentialID]; !ok {
		return domain.Session{}, fmt.Errorf("failed to create session: unknown credential %s", s.CredentialID)
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.LastUsedAt.IsZero() {
		s.LastUsedAt = s.CreatedAt
	}

	r.sessions[s.ID] = s
	return s, nil
}

func (r *sessionRepository) GetByID(_ context.Context, id string) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return domain.Session{}, fmt.Errorf("session with id %s not found: %w", id, repository.ErrNotFound)
	}
	return s, nil
}

func (r *sessionRepository) Rotate(_ context.Context, id, currentHash, newHash string, usedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || s.RefreshHash != currentHash || s.State(usedAt) != domain.SessionActive {
		return fmt.Errorf("session %s: %w", id, repository.ErrStaleSession)
	}
	s.RefreshHash = newHash
	s.LastUsedAt = usedAt
	r.sessions[id] = s
	return nil
}

func (r *sessionRepository) Revoke(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok && s.RevokedAt == nil {
		s.RevokedAt = &at
		r.sessions[id] = s
	}
	return nil
}

func (r *sessionRepository) RevokeAllForCredential(_ context.Context, credentialID string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var revoked int64
	for id, s := range r.sessions {
		if s.CredentialID == credentialID && s.RevokedAt == nil {
			s.RevokedAt = &at
			r.sessions[id] = s
			revoked++
		}
	}
	return revoked, nil
}

type resetTokenRepository struct{ *store }

func (r *resetTokenRepository) Upsert(_ context.Context, t domain.PasswordResetToken) (domain.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	r.resetTokens[t.CredentialID] = t
	return t, nil
}

func (r *resetTokenRepository) Consume(_ context.Context, tokenHash string) (domain.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for credentialID, t := range r.resetTokens {
		if t.TokenHash == tokenHash {
			delete(r.resetTokens, credentialID)
			return t, nil
		}
	}
	return domain.PasswordResetToken{}, fmt.Errorf("reset token not found: %w", repository.ErrNotFound)
}

type identityRepository struct{ *store }

func identityKey(provider, providerUserID string) string {
	return provider + "/" + providerUserID
}

func (r *identityRepository) Create(_ context.Context, link domain.IdentityLink) (domain.IdentityLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := identityKey(link.Provider, link.ProviderUserID)
	if _, ok := r.identities[key]; ok {
		return domain.IdentityLink{}, fmt.Errorf("%s identity %s: %w", link.Provider, link.ProviderUserID, repository.ErrDuplicateIdentity)
	}
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	r.identities[key] = link
	return link, nil
}

func (r *identityRepository) GetByProvider(_ context.Context, provider, providerUserID string) (domain.IdentityLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.identities[identityKey(provider, providerUserID)]
	if !ok {
		return domain.IdentityLink{}, fmt.Errorf("identity link not found: %w", repository.ErrNotFound)
	}
	return link, nil
}
