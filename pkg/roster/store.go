package roster

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Store keeps the last known result of every roster player for the life of the process.
// Entries never expire; a refresh only replaces the halves it actually fetched.
type Store struct {
	mu        sync.RWMutex
	entries   *cache.Cache
	order     []string
	known     map[string]bool
	updatedAt time.Time
}

// NewStore creates an empty store for the given roster names.
func NewStore(names []string) *Store {
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}
	order := make([]string, len(names))
	copy(order, names)
	return &Store{
		entries: cache.New(cache.NoExpiration, 0),
		order:   order,
		known:   known,
	}
}

// Merge records snap entry by entry. Names outside the roster are ignored, and a player
// stays unrecorded until at least one half has been fetched.
func (s *Store) Merge(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, next := range snap.Players {
		if !s.known[name] {
			continue
		}
		merged := PlayerResult{Name: name}
		if cached, ok := s.entries.Get(name); ok {
			merged = cached.(PlayerResult)
		}
		if next.Stats != nil {
			merged.Stats, merged.StatsFetchedAt = next.Stats, next.StatsFetchedAt
		}
		if next.Lookup != nil {
			merged.Lookup, merged.LookupFetchedAt = next.Lookup, next.LookupFetchedAt
		}
		if !merged.HasData() {
			continue
		}
		s.entries.Set(name, merged, cache.NoExpiration)
	}
	if snap.UpdatedAt.After(s.updatedAt) {
		s.updatedAt = snap.UpdatedAt
	}
}

// Get returns the cached result for name.
func (s *Store) Get(name string) (PlayerResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(name)
}

func (s *Store) get(name string) (PlayerResult, bool) {
	cached, ok := s.entries.Get(name)
	if !ok {
		return PlayerResult{Name: name}, false
	}
	return cached.(PlayerResult), true
}

// Snapshot returns a copy of the cached entries.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Players:   make(map[string]PlayerResult, len(s.order)),
		Order:     make([]string, len(s.order)),
		UpdatedAt: s.updatedAt,
	}
	copy(snap.Order, s.order)
	for _, name := range s.order {
		if p, ok := s.get(name); ok {
			snap.Players[name] = p
		}
	}
	return snap
}

// UpdatedAt is the completion time of the latest merged refresh, zero if none.
func (s *Store) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// Empty reports whether no player has data yet.
func (s *Store) Empty() bool {
	return s.entries.ItemCount() == 0
}

// Tracks reports whether name is part of the roster.
func (s *Store) Tracks(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.known[name]
}
