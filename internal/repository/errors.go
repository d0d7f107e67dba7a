package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when trying to create a credential with an existing email
	ErrDuplicateEmail = errors.New("credential with this email already exists")

	// ErrDuplicateIdentity is returned when a provider account is already linked
	ErrDuplicateIdentity = errors.New("identity link already exists")

	// ErrStaleSession is returned when a session changed or ended between read and rotation
	ErrStaleSession = errors.New("session was modified concurrently or is no longer active")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
