package memory

import (
	"sync"

	"github.com/voralek/sessguard/pkg/cmap"
)

// sessionSet is a concurrent-safe set of session ids.
type sessionSet struct {
	mu    sync.RWMutex
	items map[string]struct{}
}

func newSessionSet() *sessionSet {
	return &sessionSet{items: make(map[string]struct{})}
}

func (s *sessionSet) add(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = struct{}{}
}

func (s *sessionSet) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

func (s *sessionSet) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *sessionSet) ids() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	return ids
}

// userIndex maps a user id to the set of that user's session ids,
// enabling efficient per-user listing and batch deletes.
type userIndex struct {
	index *cmap.Map[string, *sessionSet]
}

func newUserIndex() *userIndex {
	return &userIndex{index: cmap.New[string, *sessionSet]()}
}

func (i *userIndex) add(userID, sessionID string) {
	set, _ := i.index.GetOrSet(userID, newSessionSet())
	set.add(sessionID)
}

func (i *userIndex) remove(userID, sessionID string) {
	set, ok := i.index.Get(userID)
	if !ok {
		return
	}
	set.remove(sessionID)
	if set.len() == 0 {
		i.index.Delete(userID)
	}
}

func (i *userIndex) sessions(userID string) []string {
	set, ok := i.index.Get(userID)
	if !ok {
		return nil
	}
	return set.ids()
}
