// Package file implements store.Store over a single JSON file.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bissquit/userroles/internal/domain"
	"github.com/bissquit/userroles/internal/store"
	"github.com/google/uuid"
)

const filePerm = 0o644

// Store keeps the collection as a pretty-printed JSON array.
type Store struct {
	path string
}

// New returns a store for path, creating the file with an empty array if it does not exist.
func New(path string) (*Store, error) {
	s := &Store{path: path}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		return s, nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("%w: stat %s: %w", store.ErrIO, path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create data dir: %w", store.ErrIO, err)
	}
	if err := os.WriteFile(path, []byte("[]"), filePerm); err != nil {
		return nil, fmt.Errorf("%w: initialize %s: %w", store.ErrIO, path, err)
	}
	slog.Info("data file initialized", "path", path)

	return s, nil
}

// Path returns the data file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads and decodes the entire file.
func (s *Store) Load(ctx context.Context) (domain.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrRead, err)
	}

	var users domain.Collection
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrParse, err)
	}
	if users == nil {
		users = make(domain.Collection, 0)
	}

	return users, nil
}

// Save overwrites the file. The content is written to a temporary file in the
// same directory and renamed into place, so readers never see a partial document.
func (s *Store) Save(ctx context.Context, users domain.Collection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if users == nil {
		users = make(domain.Collection, 0)
	}

	data, err := domain.MarshalIndent(users)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", store.ErrWrite, err)
	}

	tmp := filepath.Join(filepath.Dir(s.path), "."+filepath.Base(s.path)+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, filePerm); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: %w", store.ErrWrite, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: %w", store.ErrWrite, err)
	}

	return nil
}
