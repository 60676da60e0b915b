package ratchet

import (
	"sml/internal/util/memzero"
)

// DefaultMaxSkipped bounds both the cache size and the largest counter gap a
// single receive may bridge.
const DefaultMaxSkipped = 1000

// SkippedKeyID addresses one cached message key by ratchet generation (the
// sender's ratchet public key, or a per-sender epoch digest for groups) and
// message index.
type SkippedKeyID struct {
	Gen   [32]byte `json:"gen"`
	Index uint32   `json:"index"`
}

// SkippedEntry is the exportable form of one cached key.
type SkippedEntry struct {
	ID  SkippedKeyID `json:"id"`
	Key []byte       `json:"key"`
}

// SkippedKeys is a bounded cache of derived, not-yet-used message keys,
// evicting oldest-first when full. Take is destructive: an entry is removed
// the instant it is consumed. Not safe for concurrent use.
type SkippedKeys struct {
	capacity int
	order    []SkippedKeyID
	keys     map[SkippedKeyID][]byte
}

// NewSkippedKeys returns an empty cache holding at most capacity entries.
func NewSkippedKeys(capacity int) *SkippedKeys {
	if capacity <= 0 {
		capacity = DefaultMaxSkipped
	}
	return &SkippedKeys{
		capacity: capacity,
		keys:     make(map[SkippedKeyID][]byte),
	}
}

// Insert caches a key, evicting the oldest entry when the cache is full.
// Evicted and replaced keys are wiped.
func (s *SkippedKeys) Insert(gen [32]byte, index uint32, key []byte) {
	id := SkippedKeyID{Gen: gen, Index: index}
	if old, ok := s.keys[id]; ok {
		memzero.Zero(old)
		s.keys[id] = key
		return
	}
	for len(s.keys) >= s.capacity && len(s.order) > 0 {
		oldest := s.order[0]
		s.order = s.order[1:]
		if old, ok := s.keys[oldest]; ok {
			memzero.Zero(old)
			delete(s.keys, oldest)
		}
	}
	s.order = append(s.order, id)
	s.keys[id] = key
}

// Take removes and returns the key for (gen, index), if cached.
func (s *SkippedKeys) Take(gen [32]byte, index uint32) ([]byte, bool) {
	id := SkippedKeyID{Gen: gen, Index: index}
	key, ok := s.keys[id]
	if !ok {
		return nil, false
	}
	delete(s.keys, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return key, true
}

// Len reports the number of cached keys.
func (s *SkippedKeys) Len() int { return len(s.keys) }

// Purge wipes and drops every cached key.
func (s *SkippedKeys) Purge() {
	for id, key := range s.keys {
		memzero.Zero(key)
		delete(s.keys, id)
	}
	s.order = s.order[:0]
}

// Snapshot exports the cache contents in insertion order.
func (s *SkippedKeys) Snapshot() []SkippedEntry {
	out := make([]SkippedEntry, 0, len(s.order))
	for _, id := range s.order {
		if key, ok := s.keys[id]; ok {
			out = append(out, SkippedEntry{ID: id, Key: append([]byte(nil), key...)})
		}
	}
	return out
}

// Restore replaces the cache contents with a previously exported snapshot.
func (s *SkippedKeys) Restore(entries []SkippedEntry) {
	s.Purge()
	for _, e := range entries {
		s.Insert(e.ID.Gen, e.ID.Index, append([]byte(nil), e.Key...))
	}
}
