package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	refreshSecretBytes = 48
	resetTokenBytes    = 32
	stateTokenBytes    = 24
)

// NewRefreshSecret returns a URL-safe encoding of 48 random bytes
func NewRefreshSecret() (string, error) {
	return randomURLToken(refreshSecretBytes)
}

// NewResetToken returns the raw value emailed for password recovery
func NewResetToken() (string, error) {
	return randomURLToken(resetTokenBytes)
}

// HashRefresh hashes a raw refresh secret for storage in the session ledger
func HashRefresh(raw string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash refresh secret: %w", err)
	}
	return string(hash), nil
}

// CompareRefresh reports whether raw matches the stored hash, in constant time
func CompareRefresh(raw, hash string) bool {
	if raw == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
}

// HashLookupToken hashes a high-entropy token deterministically so it can be
// stored and looked up without keeping the raw value
func HashLookupToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func randomURLToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NewStateToken returns an anti-CSRF value for the OAuth redirect
func NewStateToken() (string, error) {
	return randomURLToken(stateTokenBytes)
}
