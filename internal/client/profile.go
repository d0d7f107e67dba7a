package client

import (
	"context"
	"net/http"

	"github.com/wegift/auth-service/internal/domain"
)

type createProfileRequest struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	BirthDate string `json:"birthDate,omitempty"`
}

// ProfileClient creates user profiles in the user service
type ProfileClient struct {
	internalClient
}

// NewProfileClient creates a client for the user service at baseURL
func NewProfileClient(baseURL, internalToken string, httpClient *http.Client) *ProfileClient {
	return &ProfileClient{internalClient{
		service: "user",
		baseURL: baseURL,
		token:   internalToken,
		http:    httpClient,
	}}
}

// CreateProfile registers the profile of a freshly created credential
func (c *ProfileClient) CreateProfile(ctx context.Context, profile domain.Profile) error {
	req := createProfileRequest{
		UserID:    profile.CredentialID,
		Email:     profile.Email,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
	}
	if !profile.BirthDate.IsZero() {
		req.BirthDate = profile.BirthDate.Format("2006-01-02")
	}

	return c.postJSON(ctx, "/internal/profiles", req)
}
