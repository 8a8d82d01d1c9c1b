package accounts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,16}$`)

// Store persists launcher accounts to a single JSON file, rewritten in full on
// every mutation. Callers within the process are serialized by the store's own
// mutex; no cross-process locking is attempted.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore returns a store backed by the file at path. The file is created
// lazily on the first mutation.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the location of the backing file.
func (s *Store) Path() string {
	return s.path
}

// EnsurePlaceholder guarantees a record exists for username before an
// authentication flow starts. It creates the store file (with a fresh client
// token) if missing and inserts a placeholder record if the username is new,
// making it the default account when none is set. Idempotent: a second call
// for the same username is a no-op returning created=false.
func (s *Store) EnsurePlaceholder(username string) (created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.loadOrInit()
	if err != nil {
		return false, err
	}

	if _, ok := f.Accounts[username]; ok {
		return false, nil
	}

	f.Accounts[username] = newPlaceholder()
	if f.Default == nil {
		f.Default = &username
	}

	if err := s.save(f); err != nil {
		return false, err
	}
	log.Debug().Str("username", username).Msg("account placeholder created")
	return true, nil
}

// CommitAuthentication overwrites the token and profile fields of username's
// record with the outcome of a successful chain and marks it authenticated.
// Last writer wins; the whole file is rewritten. Fails with ErrAccountNotFound
// if no placeholder exists, leaving the file untouched.
func (s *Store) CommitAuthentication(username string, res AuthResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}

	acc, ok := f.Accounts[username]
	if !ok {
		log.Error().Str("username", username).Msg("commit for unknown account, EnsurePlaceholder was not called")
		return ErrAccountNotFound
	}

	acc.AccessToken = res.AccessToken
	acc.RefreshToken = res.RefreshToken
	acc.UUID = res.ProfileID
	acc.GName = res.ProfileName
	acc.Authenticated = true

	if err := s.save(f); err != nil {
		return err
	}
	log.Info().Str("username", username).Str("profile", res.ProfileName).Msg("account authenticated")
	return nil
}

// CreateOffline inserts an offline (non-Microsoft) account with a generated
// UUID. The username must be 3-16 characters of letters, digits or underscore.
func (s *Store) CreateOffline(username string) error {
	if !usernamePattern.MatchString(username) {
		return ErrInvalidUsername
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.loadOrInit()
	if err != nil {
		return err
	}
	if _, ok := f.Accounts[username]; ok {
		return ErrAccountExists
	}

	f.Accounts[username] = &Account{
		UUID:         uuid.NewString(),
		Online:       false,
		Microsoft:    false,
		GName:        username,
		AccessToken:  PlaceholderValue,
		RefreshToken: PlaceholderValue,
	}
	if f.Default == nil {
		f.Default = &username
	}
	return s.save(f)
}

// Remove deletes username's record. If it was the default account, the
// default is cleared.
func (s *Store) Remove(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := f.Accounts[username]; !ok {
		return ErrAccountNotFound
	}

	delete(f.Accounts, username)
	if f.Default != nil && *f.Default == username {
		f.Default = nil
	}
	return s.save(f)
}

// SetDefault marks an existing account as the one used when no account is
// selected explicitly.
func (s *Store) SetDefault(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := f.Accounts[username]; !ok {
		return ErrAccountNotFound
	}
	f.Default = &username
	return s.save(f)
}

// Get returns a copy of username's record.
func (s *Store) Get(username string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return Account{}, err
	}
	acc, ok := f.Accounts[username]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return *acc, nil
}

// List returns the stored usernames in sorted order.
func (s *Store) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	names := make([]string, 0, len(f.Accounts))
	for name := range f.Accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Default returns the default account's username, or "" when none is set.
func (s *Store) Default() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return "", err
	}
	if f.Default == nil {
		return "", nil
	}
	return *f.Default, nil
}

// ClientToken returns the stable client correlation id, creating the store
// file if it does not exist yet.
func (s *Store) ClientToken() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err == nil {
		return f.ClientToken, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}

	f, err = s.loadOrInit()
	if err != nil {
		return "", err
	}
	if err := s.save(f); err != nil {
		return "", err
	}
	return f.ClientToken, nil
}

func (s *Store) load() (*File, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if f.Accounts == nil {
		f.Accounts = make(map[string]*Account)
	}
	return &f, nil
}

func (s *Store) loadOrInit() (*File, error) {
	f, err := s.load()
	if err == nil {
		return f, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	return &File{
		Default:     nil,
		Accounts:    make(map[string]*Account),
		ClientToken: uuid.NewString(),
	}, nil
}

func (s *Store) save(f *File) error {
	data, err := json.MarshalIndent(f, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal accounts file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data folder: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}
