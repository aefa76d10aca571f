package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/roomcast-server/internal/store"
	"github.com/vovakirdan/roomcast-server/internal/store/memstore"
)

// fixedClock returns a clock frozen at ms; nextTimestamp still advances
// past it on every call.
func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

// recorderConn is a Conn that records every message delivered to it.
type recorderConn struct {
	mu   sync.Mutex
	msgs []Message
}

func (c *recorderConn) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *recorderConn) received() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.msgs))
	copy(out, c.msgs)
	return out
}

var errConnDown = errors.New("connection down")

// failingConn is a Conn whose sends always fail.
type failingConn struct {
	attempts int
}

func (c *failingConn) Send(Message) error {
	c.attempts++
	return errConnDown
}

// errStore wraps a Log and fails selected operations.
type errStore struct {
	store.Log
	appendErr error
	listErr   error
}

func (s *errStore) Append(ctx context.Context, room, key string, rec store.Record) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	return s.Log.Append(ctx, room, key, rec)
}

func (s *errStore) ListByPrefix(ctx context.Context, room, prefix string) ([]store.Record, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.Log.ListByPrefix(ctx, room, prefix)
}

func newTestBroadcaster(t *testing.T, history store.Log) *Broadcaster {
	t.Helper()

	if history == nil {
		history = memstore.New()
	}
	logger := zerolog.Nop()
	bc := NewBroadcaster("general", history, &logger)

	// Deterministic identity and clock for assertions.
	next := 0
	bc.idgen = func() string {
		next++
		return string(rune('a' + next - 1))
	}
	bc.clock = fixedClock(100)
	return bc
}

func mustJoin(t *testing.T, bc *Broadcaster, conn Conn, name string) *Membership {
	t.Helper()

	m, err := bc.Join(context.Background(), conn, name)
	if err != nil {
		t.Fatalf("Join(%s): %v", name, err)
	}
	return m
}

func mustSubmit(t *testing.T, bc *Broadcaster, conn Conn, raw string) {
	t.Helper()

	if err := bc.Submit(context.Background(), conn, []byte(raw)); err != nil {
		t.Fatalf("Submit(%s): %v", raw, err)
	}
}
