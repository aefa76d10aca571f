package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/vovakirdan/roomcast-server/internal/store"
)

// Store is an in-memory store.Log. It keeps each room's records ordered by
// key and is safe for concurrent use. Nothing survives a restart; it backs
// tests and ephemeral deployments.
type Store struct {
	mu    sync.RWMutex
	rooms map[string][]store.Record
}

// New creates an empty in-memory log.
func New() *Store {
	return &Store{rooms: make(map[string][]store.Record)}
}

// Append inserts rec under key, keeping the room's records key-ordered.
func (s *Store) Append(_ context.Context, room, key string, rec store.Record) error {
	rec.Key = key

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.rooms[room]
	i := sort.Search(len(log), func(i int) bool { return log[i].Key >= key })
	log = append(log, store.Record{})
	copy(log[i+1:], log[i:])
	log[i] = rec
	s.rooms[room] = log
	return nil
}

// ListByPrefix returns the room's records whose key starts with prefix,
// oldest first.
func (s *Store) ListByPrefix(_ context.Context, room, prefix string) ([]store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Record
	for _, rec := range s.rooms[room] {
		if strings.HasPrefix(rec.Key, prefix) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ListRecent returns up to limit of the room's newest records in
// chronological order.
func (s *Store) ListRecent(_ context.Context, room string, limit int) ([]store.Record, error) {
	if limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.rooms[room]
	if len(log) > limit {
		log = log[len(log)-limit:]
	}
	out := make([]store.Record, len(log))
	copy(out, log)
	return out, nil
}

// Close is a no-op for the in-memory log.
func (s *Store) Close() error {
	return nil
}

var _ store.Log = (*Store)(nil)
