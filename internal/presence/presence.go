// Package presence tracks which users hold a live connection, as Redis
// keys with a TTL matched to the websocket heartbeat. Keeping the
// registry out of process memory lets several API instances share one
// view of who is online.
package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// presence:{userID} -> "online", expiring unless refreshed.
	keyPresence = "presence:%s"

	// onlineTTL matches the websocket ping period with headroom.
	onlineTTL = 70 * time.Second
)

// NewClient creates a Redis client for the presence store.
func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Tracker is the Redis-backed online registry.
type Tracker struct {
	rdb *redis.Client
}

// NewTracker creates a tracker over the given client.
func NewTracker(rdb *redis.Client) *Tracker {
	return &Tracker{rdb: rdb}
}

// MarkOnline records the user as online until the TTL lapses.
func (t *Tracker) MarkOnline(ctx context.Context, userID string) error {
	return t.rdb.Set(ctx, key(userID), "online", onlineTTL).Err()
}

// Refresh extends the user's online window.
func (t *Tracker) Refresh(ctx context.Context, userID string) error {
	return t.rdb.Expire(ctx, key(userID), onlineTTL).Err()
}

// MarkOffline drops the user's presence key.
func (t *Tracker) MarkOffline(ctx context.Context, userID string) error {
	return t.rdb.Del(ctx, key(userID)).Err()
}

// IsOnline reports whether the user currently has a presence key.
func (t *Tracker) IsOnline(ctx context.Context, userID string) (bool, error) {
	n, err := t.rdb.Exists(ctx, key(userID)).Result()
	return n > 0, err
}

func key(userID string) string {
	return fmt.Sprintf(keyPresence, userID)
}
