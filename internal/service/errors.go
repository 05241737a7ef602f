package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks a malformed request body. Terminal.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials covers both unknown login and wrong
	// credential; the two are indistinguishable to the caller so a probe
	// cannot enumerate logins. Terminal.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotAuthenticated is the terminal outcome of logging out an
	// identity that holds no live token or session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrForbidden means the caller is authenticated but does not own the
	// resource. Terminal.
	ErrForbidden = errors.New("forbidden")
	// ErrUnavailable wraps a backing-store timeout or transport failure.
	// Retryable by the caller; never retried here.
	ErrUnavailable = errors.New("backing store unavailable")
)

// storeErr maps an unexpected store failure to the retryable taxonomy
// without leaking it. Sentinel errors pass through untouched.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
