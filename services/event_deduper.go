package services

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventDeduper remembers processed webhook event ids. It is a fast path only;
// the payment_key constraint is what keeps redelivery from double-counting.
type EventDeduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

type redisKV interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

type RedisEventDeduper struct {
	client redisKV
	ttl    time.Duration
}

func NewRedisEventDeduper(client redisKV, ttl time.Duration) *RedisEventDeduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisEventDeduper{client: client, ttl: ttl}
}

func dedupeKey(eventID string) string {
	return "stripe:event:" + eventID
}

func (d *RedisEventDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := d.client.Exists(ctx, dedupeKey(eventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *RedisEventDeduper) Mark(ctx context.Context, eventID string) error {
	return d.client.Set(ctx, dedupeKey(eventID), "1", d.ttl).Err()
}
