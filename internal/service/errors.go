package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	// An unknown username and a wrong password are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken indicates a bearer token that is missing, malformed, expired
	// or bound to an admin that no longer exists.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUnauthenticated is returned by operations that require a valid session.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrInvalidSetupToken indicates the legacy setup secret did not match.
	ErrInvalidSetupToken = errors.New("invalid setup token")
	// ErrMissingField indicates a required input was empty or absent.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidInput indicates a field that is present but not acceptable.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAlreadySetup is returned when the admin has already replaced the default credentials.
	ErrAlreadySetup = errors.New("admin already fully configured")
	// ErrPostNotFound is returned when a post id does not resolve.
	ErrPostNotFound = errors.New("post not found")
)

// StoreError wraps a persistence failure so callers can tell infrastructure
// faults apart from the domain errors above.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeError(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
