package domain

import "time"

// Profile is the personal data handed to the user service after registration
type Profile struct {
	CredentialID string
	Email        string
	FirstName    string
	LastName     string
	BirthDate    time.Time
}
