// Package memory implements store.Store in process memory, for tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bissquit/userroles/internal/domain"
	"github.com/bissquit/userroles/internal/store"
)

// Store holds the collection as encoded JSON, so callers never share memory with it.
type Store struct {
	mu    sync.Mutex
	data  []byte
	saves int

	// LoadErr and SaveErr, when set, are returned instead of performing the operation.
	LoadErr error
	SaveErr error
}

// New returns an empty store.
func New() *Store {
	return &Store{data: []byte("[]")}
}

// NewWithUsers returns a store primed with users.
func NewWithUsers(users domain.Collection) (*Store, error) {
	data, err := json.Marshal(users)
	if err != nil {
		return nil, err
	}
	return &Store{data: data}, nil
}

// NewWithRaw returns a store whose content is data verbatim.
func NewWithRaw(data []byte) *Store {
	return &Store{data: data}
}

func (s *Store) Load(_ context.Context) (domain.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.LoadErr != nil {
		return nil, s.LoadErr
	}

	var users domain.Collection
	if err := json.Unmarshal(s.data, &users); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrParse, err)
	}
	if users == nil {
		users = make(domain.Collection, 0)
	}
	return users, nil
}

func (s *Store) Save(_ context.Context, users domain.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SaveErr != nil {
		return s.SaveErr
	}

	data, err := domain.MarshalIndent(users)
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrWrite, err)
	}
	s.data = data
	s.saves++
	return nil
}

// Saves returns how many successful saves happened.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Raw returns the current encoded content.
func (s *Store) Raw() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.data...)
}
