package domain

// AccessClaims are the identity claims carried by an access token
type AccessClaims struct {
	CredentialID string
	SessionID    string
	Role         Role
}

// ExternalIdentity is an identity asserted by an OAuth provider
type ExternalIdentity struct {
	Provider       string
	ProviderUserID string
	Email          string
	EmailVerified  bool
	GivenName      string
	FamilyName     string
}
