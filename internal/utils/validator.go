package utils

import (
	"regexp"
	"unicode"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

const (
	// MinPasswordLength is the shortest password accepted by the policy
	MinPasswordLength = 8
	// MaxPasswordBytes is the longest input bcrypt accepts
	MaxPasswordBytes = 72
)

// ValidateEmail validates an email address
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidatePassword reports whether password satisfies the complexity policy:
// at least 8 characters, at most 72 bytes, with an uppercase letter, a lowercase
// letter, a digit and a symbol
func ValidatePassword(password string) bool {
	if len([]rune(password)) < MinPasswordLength || len(password) > MaxPasswordBytes {
		return false
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasDigit = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSymbol = true
		}
	}

	return hasUpper && hasLower && hasDigit && hasSymbol
}
