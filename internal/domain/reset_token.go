package domain

import "time"

// PasswordResetToken is a single-use credential recovery grant.
// Only the SHA-256 of the emailed token is persisted.
type PasswordResetToken struct {
	ID           string    `json:"id" db:"id"`
	CredentialID string    `json:"credential_id" db:"credential_id"`
	TokenHash    string    `json:"-" db:"token_hash"`
	ExpiresAt    time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// IsExpired checks if the reset token can no longer be consumed
func (t PasswordResetToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
