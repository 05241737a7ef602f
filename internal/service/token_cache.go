package service

import (
	"context"
	"fmt"
	"time"

	"feedgate/internal/observability"

	"github.com/redis/go-redis/v9"
)

// TokenCache maps opaque access tokens to logins with an expiry
// independent from the persistent user record. A token maps to at most
// one login at a time.
type TokenCache interface {
	Put(ctx context.Context, token, login string, ttl time.Duration) error
	Lookup(ctx context.Context, token string) (login string, ok bool, err error)
	Delete(ctx context.Context, token string) (bool, error)
}

type RedisTokenCache struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisTokenCache(client redis.UniversalClient, prefix string) *RedisTokenCache {
	if prefix == "" {
		prefix = "feedgate"
	}
	return &RedisTokenCache{client: client, prefix: prefix}
}

func (c *RedisTokenCache) Put(ctx context.Context, token, login string, ttl time.Duration) error {
	err := c.client.Set(ctx, c.key(token), login, ttl).Err()
	if err != nil {
		observability.RecordCacheOperation(ctx, "token", "put", "error")
		return err
	}
	observability.RecordCacheOperation(ctx, "token", "put", "success")
	return nil
}

func (c *RedisTokenCache) Lookup(ctx context.Context, token string) (string, bool, error) {
	login, err := c.client.Get(ctx, c.key(token)).Result()
	if err == redis.Nil {
		observability.RecordCacheOperation(ctx, "token", "lookup", "miss")
		return "", false, nil
	}
	if err != nil {
		observability.RecordCacheOperation(ctx, "token", "lookup", "error")
		return "", false, err
	}
	observability.RecordCacheOperation(ctx, "token", "lookup", "hit")
	return login, true, nil
}

func (c *RedisTokenCache) Delete(ctx context.Context, token string) (bool, error) {
	n, err := c.client.Del(ctx, c.key(token)).Result()
	if err != nil {
		observability.RecordCacheOperation(ctx, "token", "delete", "error")
		return false, err
	}
	observability.RecordCacheOperation(ctx, "token", "delete", "success")
	return n > 0, nil
}

func (c *RedisTokenCache) key(token string) string {
	return fmt.Sprintf("%s:token:%s", c.prefix, token)
}
