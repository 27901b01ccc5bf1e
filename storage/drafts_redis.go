package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const draftsKeyPrefix = "drafts:"

// RedisDrafts keeps drafts in Redis under a fixed prefix.
type RedisDrafts struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisDrafts creates a draft cache on client. A zero ttl keeps drafts forever.
func NewRedisDrafts(client *redis.Client, ttl time.Duration) *RedisDrafts {
	if client == nil {
		panic("storage.NewRedisDrafts: redis client is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisDrafts{redis: client, ttl: ttl}
}

func (d *RedisDrafts) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := d.redis.Get(ctx, draftsCacheKey(key)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

func (d *RedisDrafts) Set(ctx context.Context, key, value string) error {
	return d.redis.Set(ctx, draftsCacheKey(key), value, d.ttl).Err()
}

func draftsCacheKey(key string) string {
	return draftsKeyPrefix + key
}
