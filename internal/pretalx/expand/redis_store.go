package expand

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs the optional shared-across-processes cache mode
// described in SPEC_FULL.md §4's C3 supplement (e.g. a notebook and a
// CLI run in the same CI job sharing expansion state). Strictly
// additive: default operation uses MapStore/BoundedStore instead.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore builds a store namespaced under prefix (typically the
// event slug, so caches from different events never collide).
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) redisKey(kind Kind, key string) string {
	return fmt.Sprintf("%s:expand:%s:%s", s.prefix, kind, key)
}

func (s *RedisStore) Get(ctx context.Context, kind Kind, key string) (json.RawMessage, bool, error) {
	v, err := s.client.Get(ctx, s.redisKey(kind, key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return json.RawMessage(v), true, nil
}

func (s *RedisStore) Put(ctx context.Context, kind Kind, key string, value json.RawMessage) error {
	return s.client.Set(ctx, s.redisKey(kind, key), []byte(value), 0).Err()
}

func (s *RedisStore) Clear(ctx context.Context, kind Kind) error {
	pattern := s.redisKey(kind, "*")
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}
