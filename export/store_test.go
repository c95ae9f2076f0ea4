package export

import (
	"testing"
	"time"
)

func TestStoreServesOnce(t *testing.T) {
	s := NewStore(time.Minute)
	defer s.Close()

	id := s.Put([]byte("result"))
	data, ok := s.Take(id)
	if !ok || string(data) != "result" {
		t.Fatalf("first Take = %q, %v", data, ok)
	}

	if _, ok := s.Take(id); ok {
		t.Error("second Take of the same id must miss")
	}
}

func TestStoreUnknownID(t *testing.T) {
	s := NewStore(time.Minute)
	defer s.Close()

	if _, ok := s.Take("no-such-id"); ok {
		t.Error("unknown id must miss")
	}
}

func TestStoreExpiry(t *testing.T) {
	s := NewStore(10 * time.Millisecond)
	defer s.Close()

	id := s.Put([]byte("stale"))
	time.Sleep(30 * time.Millisecond)

	if _, ok := s.Take(id); ok {
		t.Error("expired entry must not be served")
	}
}

func TestStoreIDsAreUnique(t *testing.T) {
	s := NewStore(time.Minute)
	defer s.Close()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := s.Put(nil)
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
	if s.Len() != 100 {
		t.Errorf("Len = %d", s.Len())
	}
}

func TestStoreCloseDropsEntries(t *testing.T) {
	s := NewStore(time.Minute)
	id := s.Put([]byte("x"))
	s.Close()

	if _, ok := s.Take(id); ok {
		t.Error("closed store must not serve entries")
	}
	// Closing twice is safe
	s.Close()
}

func TestStorePutAfterCloseDropsData(t *testing.T) {
	s := NewStore(time.Minute)
	s.Close()

	// Nothing may enter the map once the sweeper has stopped, or the entry
	// would never expire
	id := s.Put([]byte("late"))
	if _, ok := s.Take(id); ok {
		t.Error("entry put after Close must not be served")
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d after Put on a closed store", s.Len())
	}
}
