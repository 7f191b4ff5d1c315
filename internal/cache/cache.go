// Package cache holds the in-process active-session cache.
//
// The cache maps a user id to a snapshot of {user, active sessions} so
// the auth gate can skip a store round trip for recently seen sessions.
// It is a derived accelerator, never authoritative: when it disagrees
// with the store about whether a session exists, the store wins.
//
// Entries live in a sharded map and each entry carries its own mutex,
// so requests for different users never contend. Critical sections are
// bounded to in-memory list scans and edits; no I/O happens under an
// entry lock.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voralek/sessguard/internal/core/domain"
	"github.com/voralek/sessguard/pkg/cmap"
)

// DefaultIdleEviction is how long an entry may go without a lookup
// before the janitor evicts it. Matches the lifecycle memory window.
const DefaultIdleEviction = domain.MemCacheDuration

// Entry is the shared handle to one user's cached state. Accessors
// lock internally and return copies, so a handle can be held across
// suspension points without pinning the entry lock.
type Entry struct {
	mu       sync.Mutex
	user     *domain.User
	sessions []*domain.SessionRecord
	evicted  bool

	// lastTouch is the unix nano of the last lookup, read by the janitor.
	lastTouch atomic.Int64
}

// User returns a copy of the cached user snapshot.
func (e *Entry) User() *domain.User {
	e.mu.Lock()
	defer e.mu.Unlock()
	clone := *e.user
	return &clone
}

// Sessions returns copies of the cached session records.
func (e *Entry) Sessions() []*domain.SessionRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*domain.SessionRecord, len(e.sessions))
	for i, rec := range e.sessions {
		out[i] = rec.Clone()
	}
	return out
}

// Get returns a copy of the cached record for the session id, if listed.
func (e *Entry) Get(sessionID string) (*domain.SessionRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, rec := range e.sessions {
		if rec.UnsignedID == sessionID {
			return rec.Clone(), true
		}
	}
	return nil, false
}

// Len returns the number of cached sessions in the entry.
func (e *Entry) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// Cache is the per-user-sharded active-session cache.
type Cache struct {
	entries *cmap.Map[string, *Entry]
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: cmap.New[string, *Entry]()}
}

// MakeActive inserts or updates the user's entry with the given session
// and returns the entry handle. An existing record with the same
// unsigned id is overwritten; the user snapshot is refreshed.
func (c *Cache) MakeActive(user *domain.User, rec *domain.SessionRecord) *Entry {
	userClone := *user
	recClone := rec.Clone()

	for {
		e, _ := c.entries.GetOrSet(user.ID, &Entry{user: &userClone})

		e.mu.Lock()
		if e.evicted {
			// Racing with an eviction; the key is about to disappear.
			e.mu.Unlock()
			continue
		}

		e.user = &userClone
		replaced := false
		for i, existing := range e.sessions {
			if existing.UnsignedID == rec.UnsignedID {
				e.sessions[i] = recClone
				replaced = true
				break
			}
		}
		if !replaced {
			e.sessions = append(e.sessions, recClone)
		}
		e.lastTouch.Store(time.Now().UnixNano())
		e.mu.Unlock()
		return e
	}
}

// Lookup returns the user's entry and whether the specific session id
// is currently listed. A nil entry means the user is not cached at all.
func (c *Cache) Lookup(userID, sessionID string) (*Entry, bool) {
	e, ok := c.entries.Get(userID)
	if !ok {
		return nil, false
	}

	e.mu.Lock()
	if e.evicted {
		e.mu.Unlock()
		return nil, false
	}
	found := false
	for _, rec := range e.sessions {
		if rec.UnsignedID == sessionID {
			found = true
			break
		}
	}
	e.lastTouch.Store(time.Now().UnixNano())
	e.mu.Unlock()

	return e, found
}

// Remove drops the session id from the user's entry. When the session
// list becomes empty the whole entry is evicted.
func (c *Cache) Remove(userID, sessionID string) {
	e, ok := c.entries.Get(userID)
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return
	}

	kept := e.sessions[:0]
	for _, rec := range e.sessions {
		if rec.UnsignedID != sessionID {
			kept = append(kept, rec)
		}
	}
	e.sessions = kept

	if len(e.sessions) == 0 {
		e.evicted = true
		c.entries.Delete(userID)
	}
}

// RemoveAllExcept drops every cached session of the user except keepID.
func (c *Cache) RemoveAllExcept(userID, keepID string) {
	e, ok := c.entries.Get(userID)
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return
	}

	kept := e.sessions[:0]
	for _, rec := range e.sessions {
		if rec.UnsignedID == keepID {
			kept = append(kept, rec)
		}
	}
	e.sessions = kept

	if len(e.sessions) == 0 {
		e.evicted = true
		c.entries.Delete(userID)
	}
}

// Replace swaps the old session id for a fresh record in one critical
// section, used on refresh rotation. When the user is not cached it
// behaves like an insert through the caller's MakeActive path.
func (c *Cache) Replace(userID, oldID string, rec *domain.SessionRecord) bool {
	e, ok := c.entries.Get(userID)
	if !ok {
		return false
	}

	recClone := rec.Clone()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return false
	}

	for i, existing := range e.sessions {
		if existing.UnsignedID == oldID {
			e.sessions[i] = recClone
			e.lastTouch.Store(time.Now().UnixNano())
			return true
		}
	}

	e.sessions = append(e.sessions, recClone)
	e.lastTouch.Store(time.Now().UnixNano())
	return true
}

// UpdateUser replaces the cached user snapshot so profile changes made
// through the store become visible on cache hits. A no-op when the user
// is not cached.
func (c *Cache) UpdateUser(user *domain.User) {
	e, ok := c.entries.Get(user.ID)
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return
	}
	e.user = user.Snapshot()
	e.lastTouch.Store(time.Now().UnixNano())
}

// Evict drops the user's whole entry regardless of remaining sessions.
func (c *Cache) Evict(userID string) {
	e, ok := c.entries.Get(userID)
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return
	}
	e.evicted = true
	e.sessions = nil
	c.entries.Delete(userID)
}

// Len returns the number of cached user entries.
func (c *Cache) Len() int {
	return c.entries.Count()
}

// Janitor evicts entries that have gone idle for longer than idleAfter,
// checking every interval. It bounds cache growth under sustained login
// volume; explicit logout/rotation removal remains the primary path.
// Janitor blocks until ctx is done.
func (c *Cache) Janitor(ctx context.Context, interval, idleAfter time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.sweep(now, idleAfter)
		}
	}
}

func (c *Cache) sweep(now time.Time, idleAfter time.Duration) {
	cutoff := now.Add(-idleAfter).UnixNano()

	var stale []string
	c.entries.Range(func(userID string, e *Entry) bool {
		if e.lastTouch.Load() < cutoff {
			stale = append(stale, userID)
		}
		return true
	})

	for _, userID := range stale {
		e, ok := c.entries.Get(userID)
		if !ok {
			continue
		}
		e.mu.Lock()
		// Re-check under the lock; a lookup may have just revived it.
		if !e.evicted && e.lastTouch.Load() < cutoff {
			e.evicted = true
			e.sessions = nil
			c.entries.Delete(userID)
		}
		e.mu.Unlock()
	}
}
