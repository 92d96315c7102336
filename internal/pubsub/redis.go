package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	connectTimeout = 5 * time.Second
	keyPrefix      = "wirepresence:room:"
)

// CapacityMessage is published whenever a room's participant count changes.
type CapacityMessage struct {
	RoomID              int64 `json:"room_id"`
	CurrentParticipants int   `json:"current_participants"`
	MaxParticipants     int   `json:"max_participants"`
	At                  int64 `json:"at"`
}

// Publisher pushes capacity changes to Redis: one pub/sub message per
// change plus the latest snapshot under a per-room key.
type Publisher struct {
	rdb         *redis.Client
	snapshotTTL time.Duration
}

// Connect creates a Redis client and verifies connectivity.
func Connect(url string, snapshotTTL time.Duration) (*Publisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Publisher{rdb: rdb, snapshotTTL: snapshotTTL}, nil
}

// Channel returns the pub/sub channel of a room.
func Channel(roomID int64) string {
	return fmt.Sprintf("%s%d:capacity", keyPrefix, roomID)
}

// SnapshotKey returns the key holding the latest capacity of a room.
func SnapshotKey(roomID int64) string {
	return fmt.Sprintf("%s%d:snapshot", keyPrefix, roomID)
}

func encodeCapacity(roomID int64, current, maxParticipants int, at time.Time) ([]byte, error) {
	return json.Marshal(CapacityMessage{
		RoomID:              roomID,
		CurrentParticipants: current,
		MaxParticipants:     maxParticipants,
		At:                  at.UnixMilli(),
	})
}

// PublishCapacity sends the new count of a room.
func (p *Publisher) PublishCapacity(ctx context.Context, roomID int64, current, maxParticipants int) error {
	payload, err := encodeCapacity(roomID, current, maxParticipants, time.Now())
	if err != nil {
		return fmt.Errorf("encode capacity: %w", err)
	}

	pipe := p.rdb.TxPipeline()
	pipe.Set(ctx, SnapshotKey(roomID), payload, p.snapshotTTL)
	pipe.Publish(ctx, Channel(roomID), payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish capacity: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (p *Publisher) Close() error {
	return p.rdb.Close()
}
