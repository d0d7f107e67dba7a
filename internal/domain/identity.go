package domain

import "time"

// IdentityLink connects a credential to an account at an OAuth provider
type IdentityLink struct {
	ID             string    `json:"id" db:"id"`
	CredentialID   string    `json:"credential_id" db:"credential_id"`
	Provider       string    `json:"provider" db:"provider"` // google
	ProviderUserID string    `json:"provider_user_id" db:"provider_user_id"`
	Email          *string   `json:"email" db:"email"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
