package identity

import (
	"context"
	"strings"
	"sync"

	"gridpoint.org/internal/saga"
)

// Store persists users. Insert must fail with saga.ErrConflict when the
// email is taken; email uniqueness is enforced at the storage layer.
type Store interface {
	Insert(ctx context.Context, user User) error
	FindByEmail(ctx context.Context, email string) (User, bool, error)
	FindByID(ctx context.Context, id string) (User, bool, error)
	Update(ctx context.Context, user User) error
	Delete(ctx context.Context, id string) error
}

// InMemory implements Store for tests and single-binary development runs.
type InMemory struct {
	mu      sync.RWMutex
	byID    map[string]User
	byEmail map[string]string
}

// NewInMemory creates an empty user store.
func NewInMemory() *InMemory {
	return &InMemory{
		byID:    make(map[string]User),
		byEmail: make(map[string]string),
	}
}

func (s *InMemory) Insert(ctx context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(user.Email)
	if _, ok := s.byEmail[email]; ok {
		return saga.ErrConflict
	}
	s.byID[user.ID] = user
	s.byEmail[email] = user.ID
	return nil
}

func (s *InMemory) FindByEmail(ctx context.Context, email string) (User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return User{}, false, nil
	}
	return s.byID[id], true, nil
}

func (s *InMemory) FindByID(ctx context.Context, id string) (User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byID[id]
	return user, ok, nil
}

func (s *InMemory) Update(ctx context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.byID[user.ID]
	if !ok {
		return nil
	}
	newEmail := strings.ToLower(user.Email)
	oldEmail := strings.ToLower(prev.Email)
	if newEmail != oldEmail {
		if _, taken := s.byEmail[newEmail]; taken {
			return saga.ErrConflict
		}
		delete(s.byEmail, oldEmail)
		s.byEmail[newEmail] = user.ID
	}
	s.byID[user.ID] = user
	return nil
}

func (s *InMemory) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[id]
	if !ok {
		return nil
	}
	delete(s.byID, id)
	delete(s.byEmail, strings.ToLower(user.Email))
	return nil
}
