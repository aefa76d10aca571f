package core

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/roomcast-server/internal/store"
)

// DefaultRoom is the room joined by clients that do not name one.
const DefaultRoom = "default"

// Registry resolves room names to their broadcaster singletons. Every
// broadcaster it creates shares the same history log, keyed by room.
type Registry struct {
	history store.Log
	logger  *zerolog.Logger

	mu    sync.RWMutex
	rooms map[string]*Broadcaster
}

// NewRegistry constructs an empty registry backed by history.
func NewRegistry(history store.Log, logger *zerolog.Logger) *Registry {
	return &Registry{
		history: history,
		logger:  logger,
		rooms:   make(map[string]*Broadcaster),
	}
}

// Resolve returns the broadcaster for name, creating it on first use.
// An empty name resolves to DefaultRoom. Concurrent calls with the same
// name always yield the same instance.
func (r *Registry) Resolve(name string) *Broadcaster {
	if name == "" {
		name = DefaultRoom
	}

	r.mu.RLock()
	bc, ok := r.rooms[name]
	r.mu.RUnlock()
	if ok {
		return bc
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if bc, ok := r.rooms[name]; ok {
		return bc
	}

	roomLogger := r.logger.With().Str("room", name).Logger()
	bc = NewBroadcaster(name, r.history, &roomLogger)
	r.rooms[name] = bc
	r.logger.Info().Str("room", name).Msg("room created")
	return bc
}

// Snapshot returns the current rooms and their member counts.
func (r *Registry) Snapshot() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]int, len(r.rooms))
	for name, bc := range r.rooms {
		out[name] = bc.MemberCount()
	}
	return out
}
