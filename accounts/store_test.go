package accounts_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-mc-launcher/accounts"
)

func newTestStore(t *testing.T) *accounts.Store {
	t.Helper()
	return accounts.NewStore(filepath.Join(t.TempDir(), "accounts.json"))
}

func readFile(t *testing.T, store *accounts.Store) accounts.File {
	t.Helper()
	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	var f accounts.File
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func TestEnsurePlaceholder(t *testing.T) {
	t.Run("creates the file and a placeholder record", func(t *testing.T) {
		store := newTestStore(t)

		created, err := store.EnsurePlaceholder("alice")
		require.NoError(t, err)
		require.True(t, created)

		f := readFile(t, store)
		require.Len(t, f.Accounts, 1)
		require.NotEmpty(t, f.ClientToken)
		require.NotNil(t, f.Default)
		require.Equal(t, "alice", *f.Default)

		acc := f.Accounts["alice"]
		require.NotNil(t, acc)
		require.Equal(t, accounts.PlaceholderValue, acc.UUID)
		require.Equal(t, accounts.PlaceholderValue, acc.GName)
		require.Equal(t, accounts.PlaceholderValue, acc.AccessToken)
		require.Equal(t, accounts.PlaceholderValue, acc.RefreshToken)
		require.True(t, acc.Online)
		require.True(t, acc.Microsoft)
		require.False(t, acc.Authenticated)
	})

	t.Run("is idempotent", func(t *testing.T) {
		store := newTestStore(t)

		created, err := store.EnsurePlaceholder("alice")
		require.NoError(t, err)
		require.True(t, created)

		created, err = store.EnsurePlaceholder("alice")
		require.NoError(t, err)
		require.False(t, created)

		f := readFile(t, store)
		require.Len(t, f.Accounts, 1)
	})

	t.Run("keeps the existing default", func(t *testing.T) {
		store := newTestStore(t)

		_, err := store.EnsurePlaceholder("alice")
		require.NoError(t, err)
		_, err = store.EnsurePlaceholder("bob")
		require.NoError(t, err)

		f := readFile(t, store)
		require.Equal(t, "alice", *f.Default)
		require.Len(t, f.Accounts, 2)
	})

	t.Run("does not touch an authenticated record", func(t *testing.T) {
		store := newTestStore(t)

		_, err := store.EnsurePlaceholder("alice")
		require.NoError(t, err)
		require.NoError(t, store.CommitAuthentication("alice", accounts.AuthResult{
			AccessToken:  "token",
			RefreshToken: "refresh",
			ProfileID:    "uuid-1",
			ProfileName:  "Alice",
		}))

		created, err := store.EnsurePlaceholder("alice")
		require.NoError(t, err)
		require.False(t, created)

		acc, err := store.Get("alice")
		require.NoError(t, err)
		require.True(t, acc.Authenticated)
		require.Equal(t, "token", acc.AccessToken)
	})
}

func TestCommitAuthentication(t *testing.T) {
	t.Run("overwrites tokens and profile and marks authenticated", func(t *testing.T) {
		store := newTestStore(t)
		_, err := store.EnsurePlaceholder("alice")
		require.NoError(t, err)

		require.NoError(t, store.CommitAuthentication("alice", accounts.AuthResult{
			AccessToken:  "game-token",
			RefreshToken: "refresh-token",
			ProfileID:    "11111111222233334444555555555555",
			ProfileName:  "Alice",
		}))

		acc, err := store.Get("alice")
		require.NoError(t, err)
		require.True(t, acc.Authenticated)
		require.Equal(t, "game-token", acc.AccessToken)
		require.Equal(t, "refresh-token", acc.RefreshToken)
		require.Equal(t, "11111111222233334444555555555555", acc.UUID)
		require.Equal(t, "Alice", acc.GName)
	})

	t.Run("unknown username fails and leaves the file untouched", func(t *testing.T) {
		store := newTestStore(t)
		_, err := store.EnsurePlaceholder("bob")
		require.NoError(t, err)

		before, err := os.ReadFile(store.Path())
		require.NoError(t, err)

		err = store.CommitAuthentication("alice", accounts.AuthResult{AccessToken: "t"})
		require.ErrorIs(t, err, accounts.ErrAccountNotFound)

		after, err := os.ReadFile(store.Path())
		require.NoError(t, err)
		require.Equal(t, before, after)
	})
}

func TestCreateOffline(t *testing.T) {
	t.Run("creates a non-microsoft record with a generated uuid", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.CreateOffline("steve_01"))

		acc, err := store.Get("steve_01")
		require.NoError(t, err)
		require.False(t, acc.Microsoft)
		require.False(t, acc.Online)
		require.NotEqual(t, accounts.PlaceholderValue, acc.UUID)
		require.Equal(t, "steve_01", acc.GName)
	})

	t.Run("rejects invalid usernames", func(t *testing.T) {
		store := newTestStore(t)
		for _, name := range []string{"ab", "this_name_is_way_too_long", "bad name", "bad-name", ""} {
			require.ErrorIs(t, store.CreateOffline(name), accounts.ErrInvalidUsername, "username %q", name)
		}
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.CreateOffline("steve"))
		require.ErrorIs(t, store.CreateOffline("steve"), accounts.ErrAccountExists)
	})
}

func TestRemove(t *testing.T) {
	store := newTestStore(t)
	_, err := store.EnsurePlaceholder("alice")
	require.NoError(t, err)
	_, err = store.EnsurePlaceholder("bob")
	require.NoError(t, err)

	require.NoError(t, store.Remove("alice"))

	names, err := store.List()
	require.NoError(t, err)
	require.Equal(t, []string{"bob"}, names)

	// alice was the default, so the default is cleared
	def, err := store.Default()
	require.NoError(t, err)
	require.Empty(t, def)

	require.ErrorIs(t, store.Remove("alice"), accounts.ErrAccountNotFound)
}

func TestSetDefault(t *testing.T) {
	store := newTestStore(t)
	_, err := store.EnsurePlaceholder("alice")
	require.NoError(t, err)
	_, err = store.EnsurePlaceholder("bob")
	require.NoError(t, err)

	require.NoError(t, store.SetDefault("bob"))
	def, err := store.Default()
	require.NoError(t, err)
	require.Equal(t, "bob", def)

	require.ErrorIs(t, store.SetDefault("charlie"), accounts.ErrAccountNotFound)
}

func TestClientToken(t *testing.T) {
	store := newTestStore(t)

	token, err := store.ClientToken()
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// stable across calls and mutations
	_, err = store.EnsurePlaceholder("alice")
	require.NoError(t, err)

	again, err := store.ClientToken()
	require.NoError(t, err)
	require.Equal(t, token, again)
}

func TestList_NoFile(t *testing.T) {
	store := newTestStore(t)
	names, err := store.List()
	require.NoError(t, err)
	require.Empty(t, names)
}
