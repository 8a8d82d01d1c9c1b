package backendcli_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-mc-launcher/accounts"
	"github.com/jrsteele09/go-mc-launcher/authflow"
	"github.com/jrsteele09/go-mc-launcher/backendcli"
)

type fakeAccounts struct {
	acc accounts.Account
	err error
}

func (f fakeAccounts) Get(string) (accounts.Account, error) {
	return f.acc, f.err
}

// fakeBackend writes a shell script standing in for the backend CLI.
func fakeBackend(t *testing.T, body string) *backendcli.Runner {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-backend")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return backendcli.NewRunner(path)
}

func TestRunner_Run(t *testing.T) {
	t.Run("returns combined output", func(t *testing.T) {
		runner := fakeBackend(t, `echo "to stdout"; echo "to stderr" >&2`)
		out, err := runner.Run(context.Background(), "anything")
		require.NoError(t, err)
		require.Contains(t, out, "to stdout")
		require.Contains(t, out, "to stderr")
	})

	t.Run("returns output even on failure", func(t *testing.T) {
		runner := fakeBackend(t, `echo "diagnostic text"; exit 3`)
		out, err := runner.Run(context.Background())
		require.Error(t, err)
		require.Contains(t, out, "diagnostic text")
	})
}

func TestSubprocessTransport_RequestCode(t *testing.T) {
	t.Run("scrapes the prompt from interactive output", func(t *testing.T) {
		runner := fakeBackend(t, `
echo "[INFO] contacting auth server"
printf '\033[32mVisit https://microsoft.com/devicelogin and enter code ABC123\033[0m\n'
sleep 60`)
		transport := backendcli.NewSubprocessTransport(runner, fakeAccounts{}, "alice")
		defer transport.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		prompt, err := transport.RequestCode(ctx)
		require.NoError(t, err)
		require.Equal(t, "https://microsoft.com/devicelogin", prompt.VerificationURI)
		require.Equal(t, "ABC123", prompt.UserCode)

		require.NoError(t, transport.Close())
	})

	t.Run("fails when the backend exits without a prompt", func(t *testing.T) {
		runner := fakeBackend(t, `echo "no auth needed"`)
		transport := backendcli.NewSubprocessTransport(runner, fakeAccounts{}, "alice")

		_, err := transport.RequestCode(context.Background())
		require.Error(t, err)
		require.Contains(t, err.Error(), "without printing an auth prompt")
	})
}

func TestSubprocessTransport_PollOnce(t *testing.T) {
	t.Run("classifies the not-yet-authorized diagnostic as pending", func(t *testing.T) {
		runner := fakeBackend(t, `
printf 'error AADSTS70016: the request has not yet been authorized\n'
exit 1`)
		transport := backendcli.NewSubprocessTransport(runner, fakeAccounts{}, "alice")

		_, err := transport.PollOnce(context.Background())
		var pending *authflow.PendingError
		require.ErrorAs(t, err, &pending)
		require.Contains(t, pending.Diagnostic, "AADSTS70016")
	})

	t.Run("other failures are terminal", func(t *testing.T) {
		runner := fakeBackend(t, `echo "error AADSTS70020: token expired"; exit 1`)
		transport := backendcli.NewSubprocessTransport(runner, fakeAccounts{}, "alice")

		_, err := transport.PollOnce(context.Background())
		require.Error(t, err)
		var pending *authflow.PendingError
		require.False(t, errors.As(err, &pending))
	})

	t.Run("success reads the record the backend wrote", func(t *testing.T) {
		runner := fakeBackend(t, `echo "authenticated"`)
		store := fakeAccounts{acc: accounts.Account{
			UUID:          "profile-id",
			GName:         "Steve",
			AccessToken:   "game-token",
			RefreshToken:  "refresh-token",
			Authenticated: true,
		}}
		transport := backendcli.NewSubprocessTransport(runner, store, "alice")

		res, err := transport.PollOnce(context.Background())
		require.NoError(t, err)
		require.Equal(t, "game-token", res.AccessToken)
		require.Equal(t, "refresh-token", res.RefreshToken)
		require.Equal(t, "profile-id", res.ProfileID)
		require.Equal(t, "Steve", res.ProfileName)
	})

	t.Run("clean exit without an authenticated record is an error", func(t *testing.T) {
		runner := fakeBackend(t, `echo "done"`)
		transport := backendcli.NewSubprocessTransport(runner, fakeAccounts{acc: accounts.Account{}}, "alice")

		_, err := transport.PollOnce(context.Background())
		require.Error(t, err)
		require.Contains(t, err.Error(), "not authenticated")
	})
}
