// Package memstore is an in-memory store.Store for tests and ephemeral
// runs.
package memstore

import (
	"context"
	"sync"

	"github.com/cognicore/kotoba/pkg/kotoba/internalerr"
	"github.com/cognicore/kotoba/pkg/kotoba/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu       sync.RWMutex
	snapshot store.Snapshot
	hasData  bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// LoadSnapshot returns the stored snapshot, if any.
func (s *Store) LoadSnapshot(ctx context.Context) (store.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasData {
		return store.Snapshot{}, false, nil
	}
	return s.snapshot, true, nil
}

// SaveSnapshot stores the snapshot, refusing to clobber non-empty data
// with an empty snapshot.
func (s *Store) SaveSnapshot(ctx context.Context, snap store.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasData && !s.snapshot.Empty() && snap.Empty() {
		return internalerr.ErrEmptySnapshot
	}
	s.snapshot = snap
	s.hasData = true
	return nil
}
