package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/roomcast-server/internal/proto"
	"github.com/vovakirdan/roomcast-server/internal/store"
	"github.com/vovakirdan/roomcast-server/internal/utils"
)

// AnonymousName is used when a connection joins without a display name.
const AnonymousName = "Anonymous"

// historyPrefix namespaces message keys in the history log.
const historyPrefix = "msg:"

// Broadcaster is the owning authority for one room: the set of live
// connections and the room's append-only history log. All mutations are
// serialized under one mutex, so each room's log is a single total order
// and fan-outs never interleave with joins or leaves. Different rooms
// share nothing and proceed in parallel.
type Broadcaster struct {
	room    string
	history store.Log
	logger  *zerolog.Logger

	mu      sync.Mutex
	members map[Conn]*member
	lastTS  int64

	// Injection points for tests.
	idgen func() string
	clock func() time.Time
}

// member is the per-connection metadata held while a connection is
// registered.
type member struct {
	token string
	name  string
}

// NewBroadcaster constructs a broadcaster for room backed by history.
func NewBroadcaster(room string, history store.Log, logger *zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		room:    room,
		history: history,
		logger:  logger,
		members: make(map[Conn]*member),
		idgen:   utils.NewID,
		clock:   time.Now,
	}
}

// Room returns the room name this broadcaster owns.
func (b *Broadcaster) Room() string {
	return b.room
}

// MemberCount returns the number of registered connections.
func (b *Broadcaster) MemberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.members)
}

// Join registers conn under displayName, announces the arrival to every
// other member, then replays the full room history to conn in append
// order. It returns the membership binding conn to this room until
// Leave. If the history cannot be replayed the error propagates and the
// membership remains registered until the caller's Leave.
func (b *Broadcaster) Join(ctx context.Context, conn Conn, displayName string) (*Membership, error) {
	name := strings.TrimSpace(displayName)
	if name == "" {
		name = AnonymousName
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.members[conn]; exists {
		return nil, ErrAlreadyJoined
	}

	m := &member{token: b.idgen(), name: name}
	b.members[conn] = m

	// Peers learn about the arrival before conn receives any backlog.
	b.fanOut(Message{Body: proto.NoticeJoined, Name: name}, conn)

	records, err := b.history.ListByPrefix(ctx, b.room, historyPrefix)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	for _, rec := range records {
		msg := Message{Body: rec.Body, Name: rec.Name, Timestamp: rec.Timestamp}
		if err := conn.Send(msg); err != nil {
			return nil, fmt.Errorf("replay history: %w", err)
		}
	}

	return &Membership{Token: m.token, Name: m.name}, nil
}

// Submit handles one raw frame from conn. Frames that do not parse into
// a non-empty message are dropped without feedback. A valid message is
// appended to the room history first and fanned out to the other members
// only after the append succeeds, so no peer sees a message that was not
// persisted. The sender never receives its own message back.
func (b *Broadcaster) Submit(ctx context.Context, conn Conn, raw []byte) error {
	body, ok := proto.ParseSubmission(raw)
	if !ok {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	m, exists := b.members[conn]
	if !exists {
		return ErrNotJoined
	}

	ts := b.nextTimestamp()
	msg := Message{Body: body, Name: m.name, Timestamp: ts}
	rec := store.Record{Name: msg.Name, Body: msg.Body, Timestamp: ts}
	if err := b.history.Append(ctx, b.room, timestampKey(ts), rec); err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	b.fanOut(msg, conn)
	return nil
}

// Leave removes conn from the room and announces the departure to the
// remaining members. Connections that were never registered are ignored.
func (b *Broadcaster) Leave(conn Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, exists := b.members[conn]
	if !exists {
		return
	}
	delete(b.members, conn)

	b.fanOut(Message{Body: proto.NoticeLeft, Name: m.name}, nil)
}

// Broadcast delivers msg to every member and reports each recipient's
// outcome. The message is not recorded in history.
func (b *Broadcaster) Broadcast(msg Message) []SendOutcome {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fanOut(msg, nil)
}

// fanOut delivers msg to every member except skip and returns one
// outcome per recipient. A failed send is logged and never aborts
// delivery to the remaining members. Callers must hold b.mu.
func (b *Broadcaster) fanOut(msg Message, skip Conn) []SendOutcome {
	outcomes := make([]SendOutcome, 0, len(b.members))
	for conn, m := range b.members {
		if conn == skip {
			continue
		}
		err := conn.Send(msg)
		if err != nil {
			b.logger.Warn().Err(err).Str("room", b.room).Str("recipient", m.name).Msg("send failed")
		}
		outcomes = append(outcomes, SendOutcome{Token: m.token, Name: m.name, Err: err})
	}
	return outcomes
}

// nextTimestamp returns the next millisecond timestamp for this room.
// Timestamps never repeat or go backwards within one room; when the
// clock is coarser than the message rate, arrival order breaks the tie.
// Callers must hold b.mu.
func (b *Broadcaster) nextTimestamp() int64 {
	ts := b.clock().UnixMilli()
	if ts <= b.lastTS {
		ts = b.lastTS + 1
	}
	b.lastTS = ts
	return ts
}

// timestampKey builds a fixed-width history key so lexicographic order
// matches chronological order.
func timestampKey(ts int64) string {
	return fmt.Sprintf("%s%020d", historyPrefix, ts)
}
