package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// TokenFileName is the well-known name the token is persisted under.
const TokenFileName = "token"

// Store persists a single bearer token. Implementations perform no validation.
type Store interface {
	// Get returns the stored token and whether one is present.
	Get() (string, bool)
	Set(token string) error
	// Remove erases the token. Removing an absent token is not an error.
	Remove() error
}

// FileStore keeps the token in a 0600 file, e.g. ~/.byway-admin/token.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultTokenPath returns <dir>/token, using ~/.byway-admin when dir is empty.
func DefaultTokenPath(dir string) (string, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home dir: %w", err)
		}
		dir = filepath.Join(home, ".byway-admin")
	}
	return filepath.Join(dir, TokenFileName), nil
}

// Path returns the file location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get() (string, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil || len(data) == 0 {
		return "", false
	}
	return string(data), true
}

func (s *FileStore) Set(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("session.FileStore.Set: create dir: %w", err)
	}
	// Write-then-rename so a concurrent reader never sees a half-written token.
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".token-*")
	if err != nil {
		return fmt.Errorf("session.FileStore.Set: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after rename

	if _, err := tmp.WriteString(token); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("session.FileStore.Set: write: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("session.FileStore.Set: chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("session.FileStore.Set: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("session.FileStore.Set: rename: %w", err)
	}
	return nil
}

func (s *FileStore) Remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("session.FileStore.Remove: %w", err)
	}
	return nil
}

// MemoryStore holds the token in memory. Useful for tests and one-shot commands.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

func (s *MemoryStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryStore) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
