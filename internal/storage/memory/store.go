package memory

import (
	"context"
	"sort"
	"time"

	"github.com/voralek/sessguard/internal/core/domain"
	"github.com/voralek/sessguard/pkg/cmap"
)

// SessionStore is the in-memory session repository.
//
// All methods return copies of stored records, so callers never share
// mutable state with the store.
type SessionStore struct {
	sessions *cmap.Map[string, *domain.SessionRecord]
	byUser   *userIndex
}

// NewSessionStore creates an empty in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: cmap.New[string, *domain.SessionRecord](),
		byUser:   newUserIndex(),
	}
}

// Create persists a new session row.
func (s *SessionStore) Create(ctx context.Context, rec *domain.SessionRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	clone := rec.Clone()
	if _, existed := s.sessions.GetOrSet(rec.UnsignedID, clone); existed {
		return domain.ErrStorageError.WithDetails("duplicate unsigned id")
	}
	s.byUser.add(rec.UserID, rec.UnsignedID)
	return nil
}

// Find retrieves a session row by its unsigned id.
func (s *SessionStore) Find(ctx context.Context, unsignedID string) (*domain.SessionRecord, error) {
	rec, ok := s.sessions.Get(unsignedID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return rec.Clone(), nil
}

// List retrieves all session rows for a user, newest first.
func (s *SessionStore) List(ctx context.Context, userID string) ([]*domain.SessionRecord, error) {
	ids := s.byUser.sessions(userID)
	records := make([]*domain.SessionRecord, 0, len(ids))
	for _, id := range ids {
		if rec, ok := s.sessions.Get(id); ok {
			records = append(records, rec.Clone())
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// Delete removes a session row by its unsigned id.
func (s *SessionStore) Delete(ctx context.Context, unsignedID string) error {
	rec, ok := s.sessions.Pop(unsignedID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.byUser.remove(rec.UserID, unsignedID)
	return nil
}

// DeleteAllExcept removes every session of a user except keepID.
func (s *SessionStore) DeleteAllExcept(ctx context.Context, userID, keepID string) (int, error) {
	removed := 0
	for _, id := range s.byUser.sessions(userID) {
		if id == keepID {
			continue
		}
		if err := s.Delete(ctx, id); err == nil {
			removed++
		}
	}
	return removed, nil
}

// DeleteSelected removes the given session ids belonging to a user.
// Ids that do not exist or belong to another user are skipped.
func (s *SessionStore) DeleteSelected(ctx context.Context, userID string, ids []string) (int, error) {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	removed := 0
	for _, id := range s.byUser.sessions(userID) {
		if _, ok := drop[id]; !ok {
			continue
		}
		if err := s.Delete(ctx, id); err == nil {
			removed++
		}
	}
	return removed, nil
}

// DeleteExpired removes the user's sessions that are past the refresh
// window at the given instant.
func (s *SessionStore) DeleteExpired(ctx context.Context, userID string, now time.Time) (int, error) {
	removed := 0
	for _, id := range s.byUser.sessions(userID) {
		rec, ok := s.sessions.Get(id)
		if !ok {
			continue
		}
		if rec.Status(now) != domain.StateInvalid {
			continue
		}
		if err := s.Delete(ctx, id); err == nil {
			removed++
		}
	}
	return removed, nil
}

// Touch updates the last_used timestamp of a session row.
func (s *SessionStore) Touch(ctx context.Context, unsignedID string, lastUsed time.Time) error {
	rec, ok := s.sessions.Get(unsignedID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	clone := rec.Clone()
	clone.LastUsed = lastUsed
	s.sessions.Set(unsignedID, clone)
	return nil
}

// Count returns the number of stored sessions, for tests and gauges.
func (s *SessionStore) Count() int {
	return s.sessions.Count()
}
