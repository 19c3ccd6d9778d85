// Package file persists the auth session as a single JSON document on disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bnema/stock-admin-cli/internal/domain"
	"github.com/bnema/stock-admin-cli/internal/ports"
)

const (
	sessionDirMode  = 0o700
	sessionFileMode = 0o600
	tempFilePattern = ".session-*.json.tmp"
)

type Store struct {
	path string
	mu   sync.Mutex
}

var _ ports.SessionStore = (*Store)(nil)

func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("session file path is empty")
	}
	return &Store{path: filepath.Clean(path)}, nil
}

func (s *Store) Save(ctx context.Context, auth domain.StoredAuth) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !auth.Valid() {
		return errors.New("refusing to persist session without token and identity")
	}

	payload, err := json.Marshal(auth)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, sessionDirMode); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempFilePattern)
	if err != nil {
		return fmt.Errorf("create session temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write session temp file: %w", err)
	}
	if err := tmp.Chmod(sessionFileMode); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod session temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close session temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// Load returns the stored session. A missing file, malformed JSON, or a
// record without token and identity all count as "no session"; anything
// unusable is deleted so the next load starts clean.
func (s *Store) Load(ctx context.Context) (domain.StoredAuth, error) {
	if err := ctx.Err(); err != nil {
		return domain.StoredAuth{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.StoredAuth{}, domain.ErrNoSession
		}
		return domain.StoredAuth{}, fmt.Errorf("read session file: %w", err)
	}

	var auth domain.StoredAuth
	if err := json.Unmarshal(data, &auth); err != nil {
		s.removeLocked()
		return domain.StoredAuth{}, domain.ErrNoSession
	}
	if !auth.Valid() {
		s.removeLocked()
		return domain.StoredAuth{}, domain.ErrNoSession
	}
	return auth, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked()
	return nil
}

func (s *Store) removeLocked() {
	// Best effort; anything left behind is rejected again on the next load.
	_ = os.Remove(s.path)
}
