package accounts

import "errors"

var (
	// ErrAccountNotFound indicates a commit against a username that was never
	// given a placeholder. A contract violation by the caller, not a
	// user-actionable condition.
	ErrAccountNotFound = errors.New("account not found")

	ErrAccountExists   = errors.New("account already exists")
	ErrInvalidUsername = errors.New("username must be 3-16 characters of letters, digits or underscore")
)
