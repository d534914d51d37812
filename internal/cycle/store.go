// Package cycle holds the working copy of each church's rotation cycles.
//
// A cycle is the ordered queue of musicians consumed round-robin for one
// service. The Store serializes mutations per (church, cycle) so rapid
// consecutive reorders always operate on the latest list. Changes are not
// durable until the caller persists a Snapshot and calls MarkSaved.
package cycle

import (
	"sort"
	"sync"
)

// Key identifies a cycle within a church.
type Key struct {
	ChurchID string
	Number   int
}

// Item is one musician entry of a cycle. Positions are dense and 0-based.
type Item struct {
	MusicianID string
	Position   int
}

// Store keeps the mutable working copy of cycles.
type Store struct {
	mu      sync.Mutex
	entries map[Key]*entry
}

type entry struct {
	mu        sync.Mutex
	musicians []string
	version   uint64
	saved     uint64
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{entries: make(map[Key]*entry)}
}

func (s *Store) lookup(key Key, create bool) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries == nil {
		s.entries = make(map[Key]*entry)
	}
	e, ok := s.entries[key]
	if !ok && create {
		e = &entry{}
		s.entries[key] = e
	}
	return e
}

// Load seeds the working copy of key with the persisted order, discarding any
// unsaved edits.
func (s *Store) Load(key Key, musicianIDs []string) []Item {
	e := s.lookup(key, true)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.musicians = append([]string(nil), musicianIDs...)
	e.version++
	e.saved = e.version
	return Items(e.musicians)
}

// Loaded reports whether key has a working copy.
func (s *Store) Loaded(key Key) bool {
	return s.lookup(key, false) != nil
}

// Get returns the current items of key.
func (s *Store) Get(key Key) ([]Item, error) {
	e := s.lookup(key, false)
	if e == nil {
		return nil, ErrUnknownCycle
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return Items(e.musicians), nil
}

// Reorder moves the item at from to the insertion point to.
func (s *Store) Reorder(key Key, from, to int) ([]Item, error) {
	return s.mutate(key, func(current []string) ([]string, error) {
		return MoveItem(current, from, to)
	})
}

// Add appends musicianID to the end of the cycle.
func (s *Store) Add(key Key, musicianID string) ([]Item, error) {
	return s.mutate(key, func(current []string) ([]string, error) {
		for _, id := range current {
			if id == musicianID {
				return nil, &DuplicateMusicianError{Key: key, MusicianID: musicianID}
			}
		}
		return append(append([]string(nil), current...), musicianID), nil
	})
}

// RemoveAt deletes the item at index and compacts the remaining positions.
func (s *Store) RemoveAt(key Key, index int) ([]Item, error) {
	return s.mutate(key, func(current []string) ([]string, error) {
		if index < 0 || index >= len(current) {
			return nil, &IndexOutOfRangeError{Index: index, Len: len(current)}
		}
		out := make([]string, 0, len(current)-1)
		out = append(out, current[:index]...)
		return append(out, current[index+1:]...), nil
	})
}

func (s *Store) mutate(key Key, fn func([]string) ([]string, error)) ([]Item, error) {
	e := s.lookup(key, false)
	if e == nil {
		return nil, ErrUnknownCycle
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	next, err := fn(e.musicians)
	if err != nil {
		return nil, err
	}
	e.musicians = next
	e.version++
	return Items(e.musicians), nil
}

// Snapshot returns the ordered musician IDs of key together with the version
// they belong to. The version is handed back to MarkSaved after persisting.
func (s *Store) Snapshot(key Key) ([]string, uint64, error) {
	e := s.lookup(key, false)
	if e == nil {
		return nil, 0, ErrUnknownCycle
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.musicians...), e.version, nil
}

// MarkSaved records that version of key has been persisted. Edits made after
// the snapshot keep the cycle dirty.
func (s *Store) MarkSaved(key Key, version uint64) {
	e := s.lookup(key, false)
	if e == nil {
		return
	}
	e.mu.Lock()
	if version > e.saved && version <= e.version {
		e.saved = version
	}
	e.mu.Unlock()
}

// Dirty reports whether key has edits that were not persisted.
func (s *Store) Dirty(key Key) bool {
	e := s.lookup(key, false)
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saved != e.version
}

// Keys returns the cycles loaded for churchID ordered by number.
func (s *Store) Keys(churchID string) []Key {
	s.mu.Lock()
	keys := make([]Key, 0)
	for key := range s.entries {
		if key.ChurchID == churchID {
			keys = append(keys, key)
		}
	}
	s.mu.Unlock()
	sort.Slice(keys, func(i, j int) bool { return keys[i].Number < keys[j].Number })
	return keys
}
