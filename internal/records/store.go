package records

import (
	"context"
	"sync"

	"gridpoint.org/internal/ids"
	"gridpoint.org/internal/saga"
)

// Store persists one record resource keyed by its natural key. Insert must
// fail with saga.ErrConflict when the key is taken; the storage layer, not
// the caller's preceding lookup, is the uniqueness authority.
type Store interface {
	Find(ctx context.Context, key Key) (id string, found bool, err error)
	Insert(ctx context.Context, id string, key Key) error
	Delete(ctx context.Context, id string) error
}

// InMemory implements Store with in-process concurrency safety. Used by
// tests and single-binary development runs.
type InMemory struct {
	mu    sync.RWMutex
	byKey map[string]string
	byID  map[string]string
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		byKey: make(map[string]string),
		byID:  make(map[string]string),
	}
}

func (s *InMemory) Find(ctx context.Context, key Key) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byKey[key.Fingerprint()]
	return id, ok, nil
}

func (s *InMemory) Insert(ctx context.Context, id string, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fp := key.Fingerprint()
	if _, ok := s.byKey[fp]; ok {
		return saga.ErrConflict
	}
	s.byKey[fp] = id
	s.byID[id] = fp
	return nil
}

func (s *InMemory) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fp, ok := s.byID[id]
	if !ok {
		return nil
	}
	delete(s.byID, id)
	delete(s.byKey, fp)
	return nil
}

// Len reports the number of stored records.
func (s *InMemory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}

// storeAdapter binds a Store and one request's natural key to the saga's
// store contract.
type storeAdapter struct {
	store Store
	key   Key
}

func (a storeAdapter) Find(ctx context.Context) (string, bool, error) {
	return a.store.Find(ctx, a.key)
}

func (a storeAdapter) Insert(ctx context.Context) (string, error) {
	id := ids.New()
	if err := a.store.Insert(ctx, id, a.key); err != nil {
		return "", err
	}
	return id, nil
}

func (a storeAdapter) Remove(ctx context.Context, ref string) error {
	return a.store.Delete(ctx, ref)
}
