package backendcli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-mc-launcher/accounts"
	"github.com/jrsteele09/go-mc-launcher/authflow"
)

// AccountReader is the slice of the account store the transport reads results
// back from once the backend has written them.
type AccountReader interface {
	Get(username string) (accounts.Account, error)
}

// SubprocessTransport drives the device-code flow through the backend CLI.
// The interactive `account authenticate` process is scraped for the
// verification prompt; completion is checked by re-invoking the backend and
// classifying its printed diagnostics. On success the backend has already
// written the authenticated record to the shared accounts file, so the result
// is read back from there.
type SubprocessTransport struct {
	runner   *Runner
	store    AccountReader
	username string

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewSubprocessTransport creates a transport for username backed by runner
// and the shared account store.
func NewSubprocessTransport(runner *Runner, store AccountReader, username string) *SubprocessTransport {
	return &SubprocessTransport{
		runner:   runner,
		store:    store,
		username: username,
	}
}

// RequestCode launches the interactive authenticate command and reads its
// line-buffered output incrementally until the verification prompt appears.
// The accumulated buffer is reset once the prompt has been extracted, so
// stale text cannot re-trigger a prompt.
func (t *SubprocessTransport) RequestCode(ctx context.Context) (*authflow.Prompt, error) {
	cmd := exec.CommandContext(ctx, t.runner.Command(), "account", "authenticate", t.username)

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start backend authenticate: %w", err)
	}

	t.mu.Lock()
	t.cmd = cmd
	t.mu.Unlock()

	go func() {
		// The pipe is closed when the process exits, ending the read loop.
		err := cmd.Wait()
		_ = pw.CloseWithError(err)
	}()

	var buf bytes.Buffer
	scanner := bufio.NewScanner(pr)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		buf.WriteString(scanner.Text())
		buf.WriteByte('\n')

		if prompt := ExtractAuthPrompt(buf.String()); prompt != nil {
			buf.Reset()
			// Keep draining so the process doesn't block on a full pipe.
			go func() {
				_, _ = io.Copy(io.Discard, pr)
			}()
			log.Debug().Str("username", t.username).Msg("auth prompt scraped from backend output")
			return &authflow.Prompt{
				VerificationURI: prompt.VerificationURI,
				UserCode:        prompt.UserCode,
			}, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("backend exited without printing an auth prompt: %s", CleanOutput(buf.String()))
}

// PollOnce re-invokes the backend once and classifies its output: the
// "not yet authorized" diagnostic is a pending condition, any other failure is
// terminal, and a clean exit means the backend committed the authenticated
// record to the shared file.
func (t *SubprocessTransport) PollOnce(ctx context.Context) (*authflow.Result, error) {
	out, err := t.runner.Run(ctx, "account", "authenticate", t.username)
	if IsPendingError(out) {
		return nil, &authflow.PendingError{Diagnostic: CleanOutput(out)}
	}
	if err != nil {
		return nil, fmt.Errorf("backend authenticate failed: %w: %s", err, CleanOutput(out))
	}

	acc, err := t.store.Get(t.username)
	if err != nil {
		return nil, fmt.Errorf("read backend result: %w", err)
	}
	if !acc.Authenticated {
		return nil, fmt.Errorf("backend reported success but account %q is not authenticated", t.username)
	}

	return &authflow.Result{
		AccessToken:  acc.AccessToken,
		RefreshToken: acc.RefreshToken,
		ProfileID:    acc.UUID,
		ProfileName:  acc.GName,
	}, nil
}

// RequiresConfirmation is true: only the user knows when they have finished in
// the browser, so each poll attempt waits for their say-so.
func (t *SubprocessTransport) RequiresConfirmation() bool { return true }

// Close terminates the interactive subprocess if it is still running.
func (t *SubprocessTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cmd == nil || t.cmd.Process == nil {
		return nil
	}
	if t.cmd.ProcessState != nil {
		return nil
	}
	if err := t.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill backend process: %w", err)
	}
	return nil
}

var _ authflow.Transport = (*SubprocessTransport)(nil)
