package ratchet_test

import (
	"bytes"
	"testing"

	"sml/internal/protocol/ratchet"
)

func gen(b byte) [32]byte {
	var g [32]byte
	g[0] = b
	return g
}

func TestSkippedKeys_TakeIsDestructive(t *testing.T) {
	s := ratchet.NewSkippedKeys(4)
	s.Insert(gen(1), 0, []byte("key-a"))

	key, ok := s.Take(gen(1), 0)
	if !ok || string(key) != "key-a" {
		t.Fatalf("Take: %q, %v", key, ok)
	}
	if _, ok := s.Take(gen(1), 0); ok {
		t.Fatal("second Take succeeded")
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d", s.Len())
	}
}

func TestSkippedKeys_MissDoesNotMatchOtherGen(t *testing.T) {
	s := ratchet.NewSkippedKeys(4)
	s.Insert(gen(1), 7, []byte("key"))

	if _, ok := s.Take(gen(2), 7); ok {
		t.Fatal("key served for wrong generation")
	}
	if _, ok := s.Take(gen(1), 8); ok {
		t.Fatal("key served for wrong index")
	}
}

func TestSkippedKeys_EvictsOldestFirst(t *testing.T) {
	s := ratchet.NewSkippedKeys(3)
	for i := uint32(0); i < 5; i++ {
		s.Insert(gen(1), i, []byte{byte(i)})
	}
	if s.Len() != 3 {
		t.Fatalf("Len = %d, want 3", s.Len())
	}
	for i := uint32(0); i < 2; i++ {
		if _, ok := s.Take(gen(1), i); ok {
			t.Fatalf("index %d survived eviction", i)
		}
	}
	for i := uint32(2); i < 5; i++ {
		if _, ok := s.Take(gen(1), i); !ok {
			t.Fatalf("index %d evicted early", i)
		}
	}
}

func TestSkippedKeys_InsertReplacesInPlace(t *testing.T) {
	s := ratchet.NewSkippedKeys(2)
	s.Insert(gen(1), 0, []byte("old"))
	s.Insert(gen(1), 0, []byte("new"))
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
	key, ok := s.Take(gen(1), 0)
	if !ok || string(key) != "new" {
		t.Fatalf("Take: %q, %v", key, ok)
	}
}

func TestSkippedKeys_SnapshotRestore(t *testing.T) {
	s := ratchet.NewSkippedKeys(8)
	s.Insert(gen(1), 3, []byte("three"))
	s.Insert(gen(2), 1, []byte("one"))

	snap := s.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot has %d entries", len(snap))
	}

	r := ratchet.NewSkippedKeys(8)
	r.Restore(snap)
	key, ok := r.Take(gen(1), 3)
	if !ok || !bytes.Equal(key, []byte("three")) {
		t.Fatalf("Take after restore: %q, %v", key, ok)
	}
	if _, ok := r.Take(gen(2), 1); !ok {
		t.Fatal("second entry lost in restore")
	}
}

func TestSkippedKeys_Purge(t *testing.T) {
	s := ratchet.NewSkippedKeys(8)
	s.Insert(gen(1), 0, []byte("key"))
	s.Purge()
	if s.Len() != 0 {
		t.Fatalf("Len = %d after Purge", s.Len())
	}
	if _, ok := s.Take(gen(1), 0); ok {
		t.Fatal("key survived Purge")
	}
}
