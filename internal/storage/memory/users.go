package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/voralek/sessguard/internal/core/domain"
)

// UserStore is the in-memory user repository.
//
// A single mutex guards the maps: user writes are rare compared to
// session traffic, and uniqueness checks need the username and email
// indexes to move together.
type UserStore struct {
	mu         sync.RWMutex
	users      map[string]*domain.User
	byUsername map[string]string
	byEmail    map[string]string
}

// NewUserStore creates an empty in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		users:      make(map[string]*domain.User),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
	}
}

// Create persists a new user. Username and email must be unused.
func (s *UserStore) Create(ctx context.Context, u *domain.User) error {
	username := strings.ToLower(u.Username)
	email := strings.ToLower(u.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[username]; ok {
		return domain.ErrUserConflict
	}
	if _, ok := s.byEmail[email]; ok {
		return domain.ErrUserConflict
	}

	clone := *u
	s.users[u.ID] = &clone
	s.byUsername[username] = u.ID
	s.byEmail[email] = u.ID
	return nil
}

// FindByID retrieves a user by id.
func (s *UserStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(id)
}

// FindByUsername retrieves a user by username.
func (s *UserStore) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[strings.ToLower(username)]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return s.findLocked(id)
}

// FindByEmail retrieves a user by email.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return s.findLocked(id)
}

// UpdateAvatarKey records the object-store key of a user's avatar.
func (s *UserStore) UpdateAvatarKey(ctx context.Context, id, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	clone := *u
	clone.AvatarKey = key
	s.users[id] = &clone
	return nil
}

func (s *UserStore) findLocked(id string) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}
