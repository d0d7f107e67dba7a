package utils

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a password using bcrypt
func HashPassword(password string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPasswordHash compares a password with a hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// NewDummyHash returns a hash to compare against when no credential matches.
// It must use the cost of real credentials so unknown emails cost as much as
// wrong passwords.
func NewDummyHash(cost int) (string, error) {
	return HashPassword("wegift-timing-equalizer", cost)
}

// BurnPasswordCheck performs a comparison against hash whose result is discarded
func BurnPasswordCheck(password, hash string) {
	_ = bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
