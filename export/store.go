package export

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long an unclaimed export result is retained
const DefaultTTL = 5 * time.Minute

// Store keeps finished export buffers under opaque ids until a caller
// fetches them. Entries are served at most once and expire after a TTL, so
// abandoned results cannot accumulate in a long-running process.
type Store struct {
	mu      sync.Mutex
	entries map[string]storeEntry
	ttl     time.Duration
	done    chan struct{}
	closed  bool
}

type storeEntry struct {
	data    []byte
	expires time.Time
}

// NewStore creates a store and starts its background sweeper. ttl <= 0
// selects DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		entries: make(map[string]storeEntry),
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	go s.sweep()
	return s
}

// Put stores a result buffer and returns its id. After Close the data is
// dropped: the sweeper has stopped, so nothing may enter the map.
func (s *Store) Put(data []byte) string {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return id
	}
	s.entries[id] = storeEntry{data: data, expires: time.Now().Add(s.ttl)}
	return id
}

// Take fetches and removes a result. A second Take of the same id misses:
// each result is served exactly once.
func (s *Store) Take(id string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	delete(s.entries, id)
	if time.Now().After(entry.expires) {
		return nil, false
	}
	return entry.data, true
}

// Len reports how many unclaimed results are held
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close stops the sweeper and drops all entries
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	s.entries = make(map[string]storeEntry)
}

func (s *Store) sweep() {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for id, entry := range s.entries {
				if now.After(entry.expires) {
					delete(s.entries, id)
				}
			}
			s.mu.Unlock()
		}
	}
}
