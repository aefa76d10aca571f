package core

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/roomcast-server/internal/proto"
	"github.com/vovakirdan/roomcast-server/internal/store"
	"github.com/vovakirdan/roomcast-server/internal/store/memstore"
)

func newTestRegistry(history store.Log) *Registry {
	if history == nil {
		history = memstore.New()
	}
	logger := zerolog.Nop()
	return NewRegistry(history, &logger)
}

func TestResolveReturnsSameInstance(t *testing.T) {
	reg := newTestRegistry(nil)

	first := reg.Resolve("general")
	second := reg.Resolve("general")
	if first != second {
		t.Fatal("expected the same broadcaster for the same room name")
	}
	if first.Room() != "general" {
		t.Fatalf("expected room general, got %q", first.Room())
	}
}

func TestResolveEmptyNameUsesDefaultRoom(t *testing.T) {
	reg := newTestRegistry(nil)

	bc := reg.Resolve("")
	if bc.Room() != DefaultRoom {
		t.Fatalf("expected room %q, got %q", DefaultRoom, bc.Room())
	}
	if bc != reg.Resolve(DefaultRoom) {
		t.Fatal("empty name and the default room must resolve to the same instance")
	}
}

func TestConcurrentResolveYieldsOneInstance(t *testing.T) {
	reg := newTestRegistry(nil)

	const goroutines = 32
	results := make([]*Broadcaster, goroutines)
	var wg sync.WaitGroup
	for i := range goroutines {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = reg.Resolve("general")
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		if results[i] != results[0] {
			t.Fatalf("goroutine %d got a different broadcaster", i)
		}
	}
}

func TestSnapshotCountsMembers(t *testing.T) {
	reg := newTestRegistry(nil)

	alpha := reg.Resolve("alpha")
	beta := reg.Resolve("beta")
	mustJoin(t, alpha, &recorderConn{}, "a")
	mustJoin(t, alpha, &recorderConn{}, "b")
	mustJoin(t, beta, &recorderConn{}, "c")

	snap := reg.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 rooms, got %d: %v", len(snap), snap)
	}
	if snap["alpha"] != 2 || snap["beta"] != 1 {
		t.Fatalf("unexpected member counts: %v", snap)
	}
}

func TestRoomsAreIsolated(t *testing.T) {
	history := memstore.New()
	reg := newTestRegistry(history)

	alpha := reg.Resolve("alpha")
	beta := reg.Resolve("beta")
	alphaConn := &recorderConn{}
	betaConn := &recorderConn{}
	mustJoin(t, alpha, alphaConn, "ann")
	mustJoin(t, beta, betaConn, "ben")

	mustSubmit(t, alpha, alphaConn, `{"message":"alpha only"}`)

	if got := betaConn.received(); len(got) != 0 {
		t.Fatalf("beta connection received alpha traffic: %+v", got)
	}

	records, err := history.ListByPrefix(context.Background(), "beta", "msg:")
	if err != nil {
		t.Fatalf("ListByPrefix: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("beta history should be empty, got %+v", records)
	}

	newcomer := &recorderConn{}
	mustJoin(t, beta, newcomer, "new")
	if got := newcomer.received(); len(got) != 0 {
		t.Fatalf("joining beta must not replay alpha traffic, got %+v", got)
	}
}

func TestDefaultRoomEndToEnd(t *testing.T) {
	reg := newTestRegistry(nil)

	room := reg.Resolve("")
	room.clock = fixedClock(100)

	a := &recorderConn{}
	mustJoin(t, room, a, "A")
	if got := a.received(); len(got) != 0 {
		t.Fatalf("A joined an empty room, expected silence, got %+v", got)
	}

	mustSubmit(t, room, a, `{"message":"hi"}`)

	b := &recorderConn{}
	mustJoin(t, room, b, "B")

	replay := b.received()
	if len(replay) != 1 {
		t.Fatalf("expected exactly one replayed message, got %+v", replay)
	}
	want := Message{Body: "hi", Name: "A", Timestamp: 100}
	if replay[0] != want {
		t.Fatalf("expected %+v, got %+v", want, replay[0])
	}

	aGot := a.received()
	if len(aGot) != 1 || aGot[0].Body != proto.NoticeJoined || aGot[0].Name != "B" {
		t.Fatalf("expected only B's join notice for A, got %+v", aGot)
	}
}
