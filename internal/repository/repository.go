package repository

import (
	"github.com/wegift/auth-service/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	Credential CredentialRepository
	Session    SessionRepository
	ResetToken ResetTokenRepository
	Identity   IdentityRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		Credential: NewCredentialRepository(db),
		Session:    NewSessionRepository(db),
		ResetToken: NewResetTokenRepository(db),
		Identity:   NewIdentityRepository(db),
	}
}
