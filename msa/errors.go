package msa

import (
	"errors"
	"fmt"
)

// ErrAuthorizationPending is returned by PollToken while the user has not yet
// finished authenticating in the browser. It is an expected condition, not a
// failure; the caller waits and polls again.
var ErrAuthorizationPending = errors.New("authorization pending")

// NetworkError wraps a transport-level failure (DNS, connection refused,
// timeout). The flow does not retry these automatically.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// FatalError is a definitive rejection from the authorization server:
// expired device code, access denied, code already redeemed. The session
// cannot recover; a new device code must be issued.
type FatalError struct {
	Reason string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("authorization failed: %s", e.Reason)
}

// ProtocolError is an unexpected status or response shape from any exchange
// step. These usually indicate account-eligibility problems (no game license)
// rather than transient faults, so they are not retried.
type ProtocolError struct {
	Step   string
	Status int
	Body   string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: unexpected response (status %d): %s", e.Step, e.Status, e.Body)
}
