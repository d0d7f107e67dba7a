package dto

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email         string `json:"email" binding:"required,email,max=254"`
	Password      string `json:"password" binding:"required,strongpassword"`
	AcceptedTerms bool   `json:"acceptedTerms"`
	BirthDate     string `json:"birthDate" binding:"required,datetime=2006-01-02"`
	FirstName     string `json:"firstName" binding:"max=100"`
	LastName      string `json:"lastName" binding:"max=100"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Remember bool   `json:"remember"`
}

// EmailRequest is the body of forgot-password and activation resend
type EmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest represents a password reset request
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,strongpassword"`
}
