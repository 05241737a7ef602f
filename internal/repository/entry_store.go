package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"feedgate/internal/domain"
	"feedgate/internal/observability"

	"github.com/redis/go-redis/v9"
)

// EntryStore holds fetched feed entries in the cache layer, ordered by
// publish time. The fetcher writing entries is an external process; the
// gateway only reads and invalidates.
type EntryStore interface {
	Push(ctx context.Context, feedID string, entries []domain.Entry) error
	ListByFeed(ctx context.Context, feedID string, limit int64) ([]domain.Entry, error)
	DeleteFeed(ctx context.Context, feedID string) error
}

type RedisEntryStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisEntryStore(client redis.UniversalClient, prefix string) *RedisEntryStore {
	if prefix == "" {
		prefix = "feedgate"
	}
	return &RedisEntryStore{client: client, prefix: prefix}
}

func (s *RedisEntryStore) Push(ctx context.Context, feedID string, entries []domain.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	members := make([]redis.Z, 0, len(entries))
	for _, e := range entries {
		payload, err := json.Marshal(e)
		if err != nil {
			return err
		}
		members = append(members, redis.Z{Score: float64(e.Published.UnixMilli()), Member: payload})
	}
	err := s.client.ZAdd(ctx, s.entriesKey(feedID), members...).Err()
	if err != nil {
		observability.RecordCacheOperation(ctx, "entries", "push", "error")
		return err
	}
	observability.RecordCacheOperation(ctx, "entries", "push", "success")
	return nil
}

// ListByFeed returns up to limit entries, newest first.
func (s *RedisEntryStore) ListByFeed(ctx context.Context, feedID string, limit int64) ([]domain.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	raw, err := s.client.ZRevRange(ctx, s.entriesKey(feedID), 0, limit-1).Result()
	if err != nil {
		observability.RecordCacheOperation(ctx, "entries", "list", "error")
		return nil, err
	}
	entries := make([]domain.Entry, 0, len(raw))
	for _, item := range raw {
		var e domain.Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	observability.RecordCacheOperation(ctx, "entries", "list", "success")
	return entries, nil
}

func (s *RedisEntryStore) DeleteFeed(ctx context.Context, feedID string) error {
	err := s.client.Del(ctx, s.entriesKey(feedID)).Err()
	if err != nil {
		observability.RecordCacheOperation(ctx, "entries", "delete_feed", "error")
		return err
	}
	observability.RecordCacheOperation(ctx, "entries", "delete_feed", "success")
	return nil
}

func (s *RedisEntryStore) entriesKey(feedID string) string {
	return fmt.Sprintf("%s:entries:%s", s.prefix, feedID)
}
