package domain

import "time"

// SessionState is derived from the revocation and expiry timestamps of a session
type SessionState string

const (
	SessionActive  SessionState = "ACTIVE"
	SessionExpired SessionState = "EXPIRED"
	SessionRevoked SessionState = "REVOKED"
)

// Session is the server-side record of one refresh-token lineage
type Session struct {
	ID           string     `json:"id" db:"id"`
	CredentialID string     `json:"credential_id" db:"credential_id"`
	RefreshHash  string     `json:"-" db:"refresh_hash"`
	UserAgent    *string    `json:"user_agent" db:"user_agent"`
	SourceIP     *string    `json:"source_ip" db:"source_ip"`
	Remember     bool       `json:"remember" db:"remember"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	LastUsedAt   time.Time  `json:"last_used_at" db:"last_used_at"`
	ExpiresAt    time.Time  `json:"expires_at" db:"expires_at"`
	RevokedAt    *time.Time `json:"revoked_at" db:"revoked_at"`
}

// State returns the lifecycle state of the session at the given instant.
// Revocation is terminal and takes precedence over expiry.
func (s Session) State(now time.Time) SessionState {
	if s.RevokedAt != nil {
		return SessionRevoked
	}
	if !now.Before(s.ExpiresAt) {
		return SessionExpired
	}
	return SessionActive
}
