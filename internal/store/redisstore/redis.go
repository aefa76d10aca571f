package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vovakirdan/roomcast-server/internal/store"
)

// RedisStore implements store.Log on a Redis sorted set per room.
// Members are JSON-encoded records scored by timestamp, so range reads
// come back in chronological order.
type RedisStore struct {
	client *redis.Client
}

// New creates a new Redis log.
// addr is the host:port of the Redis server.
func New(addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis client connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func historyKey(room string) string {
	return "history:" + room
}

// Append inserts a record under (room, key).
func (s *RedisStore) Append(ctx context.Context, room, key string, rec store.Record) error {
	rec.Key = key
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	err = s.client.ZAdd(ctx, historyKey(room), redis.Z{
		Score:  float64(rec.Timestamp),
		Member: string(data),
	}).Err()
	if err != nil {
		return fmt.Errorf("zadd record: %w", err)
	}

	return nil
}

// ListByPrefix retrieves the room's records whose key starts with prefix,
// oldest first.
func (s *RedisStore) ListByPrefix(ctx context.Context, room, prefix string) ([]store.Record, error) {
	members, err := s.client.ZRange(ctx, historyKey(room), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange records: %w", err)
	}

	var records []store.Record
	for _, member := range members {
		var rec store.Record
		if err := json.Unmarshal([]byte(member), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		if strings.HasPrefix(rec.Key, prefix) {
			records = append(records, rec)
		}
	}

	return records, nil
}

// ListRecent retrieves up to limit of the room's newest records in
// chronological order.
func (s *RedisStore) ListRecent(ctx context.Context, room string, limit int) ([]store.Record, error) {
	if limit <= 0 {
		return nil, nil
	}

	members, err := s.client.ZRange(ctx, historyKey(room), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange records: %w", err)
	}

	var records []store.Record
	for _, member := range members {
		var rec store.Record
		if err := json.Unmarshal([]byte(member), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		records = append(records, rec)
	}

	return records, nil
}

// Ensure RedisStore implements store.Log
var _ store.Log = (*RedisStore)(nil)
