// Package store defines persistence of the user collection.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/userroles/internal/domain"
	"github.com/bissquit/userroles/internal/pkg/metrics"
)

// Storage errors.
var (
	ErrIO    = errors.New("data file i/o error")
	ErrRead  = fmt.Errorf("%w: read", ErrIO)
	ErrWrite = fmt.Errorf("%w: write", ErrIO)
	ErrParse = errors.New("data file is not valid JSON")
)

// Store loads and saves the whole collection at once.
// Implementations do not lock; callers serialize read-modify-write cycles.
type Store interface {
	Load(ctx context.Context) (domain.Collection, error)
	Save(ctx context.Context, users domain.Collection) error
}

type instrumented struct {
	next Store
}

// Instrument wraps s so that every operation is counted in Prometheus.
func Instrument(s Store) Store {
	return &instrumented{next: s}
}

func (i *instrumented) Load(ctx context.Context) (domain.Collection, error) {
	users, err := i.next.Load(ctx)
	metrics.RecordStoreOperation("load", err)
	if err == nil {
		metrics.StoredUsers.Set(float64(len(users)))
	}
	return users, err
}

func (i *instrumented) Save(ctx context.Context, users domain.Collection) error {
	err := i.next.Save(ctx, users)
	metrics.RecordStoreOperation("save", err)
	if err == nil {
		metrics.StoredUsers.Set(float64(len(users)))
	}
	return err
}
