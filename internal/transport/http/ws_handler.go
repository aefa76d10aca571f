package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomcast-server/internal/config"
	"github.com/vovakirdan/roomcast-server/internal/core"
)

// sendBuffer bounds how many undelivered live messages a peer may
// accumulate before sends to it start failing.
const sendBuffer = 64

var errSendBufferFull = errors.New("send buffer full")

// wsConn bridges one websocket to the core layer. It starts in direct
// mode, writing every message straight to the socket, so the history
// replay during join is never capped by the live-traffic buffer. After
// switchToBuffered, Send enqueues into a bounded buffer drained by the
// connection's write loop and fails fast when the peer stops draining.
type wsConn struct {
	ctx  context.Context
	sock *websocket.Conn

	mu       sync.Mutex
	buffered bool
	out      chan core.Message
}

func newWSConn(ctx context.Context, sock *websocket.Conn) *wsConn {
	return &wsConn{
		ctx:  ctx,
		sock: sock,
		out:  make(chan core.Message, sendBuffer),
	}
}

func (c *wsConn) Send(msg core.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.buffered {
		return wsjson.Write(c.ctx, c.sock, payloadFromMessage(msg))
	}
	select {
	case c.out <- msg:
		return nil
	default:
		return errSendBufferFull
	}
}

// switchToBuffered flips the connection to the buffered path. Taking the
// mutex guarantees no direct write is still in flight afterwards, so the
// write loop becomes the only socket writer.
func (c *wsConn) switchToBuffered() {
	c.mu.Lock()
	c.buffered = true
	c.mu.Unlock()
}

// WSHandler upgrades HTTP connections and bridges them to a room
// broadcaster. Room and display name come from the `room` and `name`
// query parameters; a missing room lands the peer in the default room.
type WSHandler struct {
	registry *core.Registry
	cfg      config.Config
	log      *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(registry *core.Registry, cfg config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{registry: registry, cfg: cfg, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}

	// The room materializes only after a successful upgrade.
	room := h.registry.Resolve(r.URL.Query().Get("room"))
	displayName := r.URL.Query().Get("name")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := newWSConn(ctx, conn)
	membership, err := room.Join(ctx, client, displayName)
	if err != nil {
		h.log.Error().Err(err).Str("room", room.Room()).Msg("join failed")
		room.Leave(client)
		conn.Close(websocket.StatusInternalError, "join failed")
		return
	}
	defer room.Leave(client)

	// The backlog went straight to the socket during Join; from here the
	// write loop pumps the buffer.
	client.switchToBuffered()

	h.log.Info().
		Str("room", room.Room()).
		Str("name", membership.Name).
		Str("token", membership.Token).
		Msg("peer joined")

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, room, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("room", room.Room()).Str("name", membership.Name).Msg("ws connection closed with error")
		}
	}

	h.log.Info().Str("room", room.Room()).Str("name", membership.Name).Msg("peer left")
	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, room *core.Broadcaster, client *wsConn) error {
	limiter := newRateLimiter(h.cfg.MessagesPerMinute)
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if !limiter.allow(time.Now()) {
			// Over-limit frames are dropped without feedback to the peer.
			h.log.Debug().Str("room", room.Room()).Msg("rate limited, dropping message")
			continue
		}
		if err := room.Submit(ctx, client, data); err != nil {
			// The message was neither logged nor broadcast; the
			// connection itself is still healthy.
			h.log.Error().Err(err).Str("room", room.Room()).Msg("submit failed")
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *wsConn) error {
	for {
		select {
		case msg := <-client.out:
			if err := wsjson.Write(ctx, conn, payloadFromMessage(msg)); err != nil {
				h.log.Error().Err(err).Msg("write ws payload")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
