package cache

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// StateCache keeps quiz snapshots in Redis. Keys never expire: the snapshot slots
// are durable storage, not a cache with eviction. It satisfies quiz.Storage.
type StateCache struct {
	client *redis.Client
}

// NewStateCache creates a Redis-backed state store
func NewStateCache(client *redis.Client) *StateCache {
	return &StateCache{client: client}
}

func (c *StateCache) key(key string) string {
	return "quiz:" + key
}

func (c *StateCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get %s", key)
	}
	return data, nil
}

func (c *StateCache) Set(ctx context.Context, key string, value []byte) error {
	return errors.Wrapf(c.client.Set(ctx, c.key(key), value, 0).Err(), "failed to set %s", key)
}

func (c *StateCache) Delete(ctx context.Context, key string) error {
	return errors.Wrapf(c.client.Del(ctx, c.key(key)).Err(), "failed to delete %s", key)
}
