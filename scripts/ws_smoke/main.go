package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/roomcast-server/internal/proto"
)

// Connects a watcher and a sender to the same room, sends one message and
// verifies the watcher receives both the join notice and the message.
func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	name := flag.String("name", "smoke", "sender display name")
	room := flag.String("room", "general", "room name")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	watcher, err := dial(ctx, *addr, *room, *name+"-watcher")
	if err != nil {
		return fmt.Errorf("dial watcher: %w", err)
	}
	defer watcher.Close(websocket.StatusNormalClosure, "bye")

	sender, err := dial(ctx, *addr, *room, *name)
	if err != nil {
		return fmt.Errorf("dial sender: %w", err)
	}
	defer sender.Close(websocket.StatusNormalClosure, "bye")

	// The watcher must see the sender arrive before any message.
	if err := awaitPayload(ctx, watcher, proto.NoticeJoined, *name); err != nil {
		return fmt.Errorf("await join notice: %w", err)
	}
	fmt.Printf("Join notice: %s %s\n", *name, proto.NoticeJoined)

	if err := wsjson.Write(ctx, sender, proto.Payload{Message: *text}); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	if err := awaitPayload(ctx, watcher, *text, *name); err != nil {
		return fmt.Errorf("await message: %w", err)
	}
	fmt.Printf("Message delivered: %s: %q\n", *name, *text)

	return nil
}

func dial(ctx context.Context, addr, room, name string) (*websocket.Conn, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse addr: %w", err)
	}
	query := u.Query()
	query.Set("room", room)
	query.Set("name", name)
	u.RawQuery = query.Encode()

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// awaitPayload reads until a payload with the wanted message and name
// arrives, skipping anything else (history replay, other notices).
func awaitPayload(ctx context.Context, conn *websocket.Conn, message, name string) error {
	for {
		var payload proto.Payload
		if err := wsjson.Read(ctx, conn, &payload); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if payload.Message == message && payload.Name == name {
			return nil
		}
		fmt.Printf("Skipping payload: %s: %q\n", payload.Name, payload.Message)
	}
}
