package objectstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// URLCache stores signed links for reuse while they remain valid.
type URLCache interface {
	Get(ctx context.Context, key string) (*SignedLink, bool, error)
	Set(ctx context.Context, key string, link *SignedLink, ttl time.Duration) error
}

// RedisURLCache is a URLCache backed by Redis.
type RedisURLCache struct {
	client redis.Cmdable
	prefix string
}

// NewRedisURLCache creates a cache storing links under "examvault:signed-url:".
func NewRedisURLCache(client redis.Cmdable) *RedisURLCache {
	return &RedisURLCache{client: client, prefix: "examvault:signed-url:"}
}

func (c *RedisURLCache) Get(ctx context.Context, key string) (*SignedLink, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("signed url cache get: %w", err)
	}
	var link SignedLink
	if err := json.Unmarshal(raw, &link); err != nil {
		return nil, false, fmt.Errorf("signed url cache decode: %w", err)
	}
	return &link, true, nil
}

func (c *RedisURLCache) Set(ctx context.Context, key string, link *SignedLink, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(link)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("signed url cache set: %w", err)
	}
	return nil
}
