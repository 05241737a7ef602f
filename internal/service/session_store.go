package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"feedgate/internal/domain"
	"feedgate/internal/observability"

	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound marks a session id with no live server-side state,
// either never issued or already expired.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore holds server-side browser sessions keyed by the opaque id
// carried in the cookie. Expiry is store-driven via the write TTL.
type SessionStore interface {
	Put(ctx context.Context, session *domain.Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type RedisSessionStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisSessionStore(client redis.UniversalClient, prefix string) *RedisSessionStore {
	if prefix == "" {
		prefix = "feedgate"
	}
	return &RedisSessionStore{client: client, prefix: prefix}
}

// Put writes the session as a single value so a reader sees either the
// complete session or nothing, never a torn write.
func (s *RedisSessionStore) Put(ctx context.Context, session *domain.Session, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	err = s.client.Set(ctx, s.key(session.ID), payload, ttl).Err()
	if err != nil {
		observability.RecordCacheOperation(ctx, "session", "put", "error")
		return err
	}
	observability.RecordCacheOperation(ctx, "session", "put", "success")
	return nil
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		observability.RecordCacheOperation(ctx, "session", "get", "miss")
		return nil, ErrSessionNotFound
	}
	if err != nil {
		observability.RecordCacheOperation(ctx, "session", "get", "error")
		return nil, err
	}
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, err
	}
	observability.RecordCacheOperation(ctx, "session", "get", "hit")
	return &session, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		observability.RecordCacheOperation(ctx, "session", "delete", "error")
		return false, err
	}
	observability.RecordCacheOperation(ctx, "session", "delete", "success")
	return n > 0, nil
}

func (s *RedisSessionStore) key(id string) string {
	return fmt.Sprintf("%s:session:%s", s.prefix, id)
}
