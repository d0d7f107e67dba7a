package domain

import (
	"strings"
	"time"
)

// Role is the authorization class of a credential
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Credential represents one authenticatable identity
type Credential struct {
	ID            string    `json:"id" db:"id"`
	Email         string    `json:"email" db:"email"`
	PasswordHash  string    `json:"-" db:"password_hash"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	IsSuspended   bool      `json:"is_suspended" db:"is_suspended"`
	Role          Role      `json:"role" db:"role"`
	AcceptedTerms bool      `json:"accepted_terms" db:"accepted_terms"`
	BirthDate     time.Time `json:"birth_date" db:"birth_date"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// CanAuthenticate reports whether the credential may open new sessions
func (c Credential) CanAuthenticate() bool {
	return c.IsActive && !c.IsSuspended
}

// NormalizeEmail is the form used for case-insensitive email matching
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
