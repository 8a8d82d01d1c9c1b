package authflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/jrsteele09/go-mc-launcher/msa"
)

// Prompt is what the user must be shown to authenticate on a second device.
type Prompt struct {
	VerificationURI string
	UserCode        string
}

// Result is the terminal outcome of a successful session, ready for the
// account store.
type Result struct {
	AccessToken  string
	RefreshToken string
	ProfileID    string
	ProfileName  string
}

// PendingError marks a poll attempt where the user has not finished
// authenticating yet. Expected and frequent; the flow retries instead of
// failing. Diagnostic optionally carries the backend's printed text for the
// presenter.
type PendingError struct {
	Diagnostic string
}

func (e *PendingError) Error() string {
	if e.Diagnostic == "" {
		return "authorization pending"
	}
	return fmt.Sprintf("authorization pending: %s", e.Diagnostic)
}

// Transport obtains the verification prompt and drives completion polling for
// one variant of the flow: direct HTTP against the authorization server, or a
// backend CLI subprocess whose output is scraped. The state machine is the
// same either way.
type Transport interface {
	// RequestCode starts a session and returns the prompt to display.
	RequestCode(ctx context.Context) (*Prompt, error)

	// PollOnce performs a single completion check. It returns *PendingError
	// while the user has not finished, the full result once they have, and
	// any other error on a terminal failure.
	PollOnce(ctx context.Context) (*Result, error)

	// RequiresConfirmation reports whether the presenter must confirm before
	// each poll attempt. The HTTP variant polls freely; the subprocess
	// variant re-invokes the backend only on explicit user confirmation.
	RequiresConfirmation() bool

	// Close releases transport resources, terminating any owned subprocess.
	Close() error
}

// HTTPTransport drives the flow with direct HTTP exchanges. On a successful
// token poll it runs the remaining exchange chain (Xbox Live, XSTS, game
// login, profile) synchronously as one unit.
type HTTPTransport struct {
	client     *msa.Client
	deviceCode string
}

// NewHTTPTransport wraps a token exchange client as a flow transport.
func NewHTTPTransport(client *msa.Client) *HTTPTransport {
	return &HTTPTransport{client: client}
}

func (t *HTTPTransport) RequestCode(ctx context.Context) (*Prompt, error) {
	dc, err := t.client.RequestDeviceCode(ctx)
	if err != nil {
		return nil, err
	}
	t.deviceCode = dc.DeviceCode
	return &Prompt{VerificationURI: dc.VerificationURI, UserCode: dc.UserCode}, nil
}

func (t *HTTPTransport) PollOnce(ctx context.Context) (*Result, error) {
	pair, err := t.client.PollToken(ctx, t.deviceCode)
	if err != nil {
		if errors.Is(err, msa.ErrAuthorizationPending) {
			return nil, &PendingError{}
		}
		return nil, err
	}

	session, err := t.client.CompleteChain(ctx, pair)
	if err != nil {
		return nil, err
	}
	return &Result{
		AccessToken:  session.GameAccessToken,
		RefreshToken: session.RefreshToken,
		ProfileID:    session.Profile.ID,
		ProfileName:  session.Profile.Name,
	}, nil
}

// RequiresConfirmation is false: the token endpoint itself reports
// pending/complete, so polling starts as soon as the code is displayed.
func (t *HTTPTransport) RequiresConfirmation() bool { return false }

func (t *HTTPTransport) Close() error { return nil }

var _ Transport = (*HTTPTransport)(nil)
