package store

import "context"

// Record is one persisted entry in a room's history log. Key is the storage
// and sort key; within a room keys are unique and lexicographic key order
// equals append order.
type Record struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	Body      string `json:"body"`
	Timestamp int64  `json:"timestamp"`
}

// Log is the durable, append-only history store backing every room.
// Implementations must keep rooms independent and preserve key order.
type Log interface {
	// Append persists rec under key within the named room's log.
	Append(ctx context.Context, room, key string, rec Record) error

	// ListByPrefix returns the room's records whose key starts with prefix,
	// in ascending key order (oldest first).
	ListByPrefix(ctx context.Context, room, prefix string) ([]Record, error)

	// ListRecent returns up to limit of the room's newest records, still in
	// chronological order. limit <= 0 returns an empty slice.
	ListRecent(ctx context.Context, room string, limit int) ([]Record, error)

	// Close releases the underlying storage resources.
	Close() error
}
