package metrics

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers which response event ids were already applied.
type Deduper interface {
	// FirstSeen returns true exactly once per event id within the retention
	// window.
	FirstSeen(ctx context.Context, eventID string) (bool, error)
}

const dedupKeyPrefix = "response_event:"

// RedisDeduper implements Deduper with SET NX and a TTL. The TTL only needs
// to outlive the queue's redelivery horizon (visibility timeout times max
// receive count), not the campaign itself.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper on the given client.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

// FirstSeen marks eventID seen, reporting whether this call was the first.
func (d *RedisDeduper) FirstSeen(ctx context.Context, eventID string) (bool, error) {
	return d.client.SetNX(ctx, dedupKeyPrefix+eventID, "1", d.ttl).Result()
}

// PassthroughDeduper treats every event as new. Used when Redis is not
// configured; counters then rely on SQS delivering each message once.
type PassthroughDeduper struct{}

func (PassthroughDeduper) FirstSeen(ctx context.Context, eventID string) (bool, error) {
	return true, nil
}
