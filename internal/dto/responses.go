package dto

import (
	"time"

	"github.com/wegift/auth-service/internal/domain"
)

// RegisterResponse is returned after a successful registration
type RegisterResponse struct {
	UserID string `json:"userId"`
}

// CredentialResponse is the public view of the authenticated credential
type CredentialResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	IsActive  bool   `json:"isActive"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// NewCredentialResponse converts a credential without its secrets
func NewCredentialResponse(c domain.Credential) CredentialResponse {
	return CredentialResponse{
		ID:        c.ID,
		Email:     c.Email,
		Role:      string(c.Role),
		IsActive:  c.IsActive,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.Format(time.RFC3339),
	}
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}
