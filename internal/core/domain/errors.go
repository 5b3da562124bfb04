package domain

import (
	"errors"
	"fmt"
)

// Domain errors.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotConnected indicates no credential exists for the scope.
	// The authorization-code flow must be completed first.
	ErrNotConnected = errors.New("graphmail: not connected")

	// ErrRefreshFailed indicates the identity provider rejected a refresh.
	ErrRefreshFailed = errors.New("graphmail: token refresh failed")

	// ErrCorruptCredential indicates a stored credential could not be decrypted or decoded.
	ErrCorruptCredential = errors.New("graphmail: corrupt credential")

	// ErrInvalidInput indicates caller input failed validation.
	ErrInvalidInput = errors.New("invalid input")
)

// RefreshError carries the identity provider's response for a failed token request.
type RefreshError struct {
	StatusCode int
	Body       string
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed with status %d: %s", e.StatusCode, e.Body)
}

// Unwrap lets callers match with errors.Is(err, ErrRefreshFailed).
func (e *RefreshError) Unwrap() error {
	return ErrRefreshFailed
}
