package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "homecare:query:"

// RedisStore shares cached results and generations between site instances.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore wraps a Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		panic("query: redis client cannot be nil")
	}
	return &RedisStore{redis: client}
}

func (s *RedisStore) Generation(ctx context.Context, family string) (int64, error) {
	gen, err := s.redis.Get(ctx, genKey(family)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query: load generation: %w", err)
	}
	return gen, nil
}

func (s *RedisStore) Get(ctx context.Context, family string, gen int64, param string) ([]byte, bool, error) {
	data, err := s.redis.Get(ctx, entryKey(family, gen, param)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query: load entry: %w", err)
	}
	return data, true, nil
}

// Set skips the write when the family has moved past gen. The check and the
// write are not atomic; an entry that slips through is unreachable because
// readers always use the current generation.
func (s *RedisStore) Set(ctx context.Context, family string, gen int64, param string, value []byte) error {
	current, err := s.Generation(ctx, family)
	if err != nil {
		return err
	}
	if current != gen {
		return nil
	}
	if err := s.redis.Set(ctx, entryKey(family, gen, param), value, 0).Err(); err != nil {
		return fmt.Errorf("query: persist entry: %w", err)
	}
	return nil
}

func (s *RedisStore) Bump(ctx context.Context, family string) (int64, error) {
	gen, err := s.redis.Incr(ctx, genKey(family)).Result()
	if err != nil {
		return 0, fmt.Errorf("query: bump generation: %w", err)
	}

	pattern := redisKeyPrefix + "entry:" + family + ":*"
	iter := s.redis.Scan(ctx, 0, pattern, 100).Iterator()
	var stale []string
	for iter.Next(ctx) {
		stale = append(stale, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return gen, fmt.Errorf("query: scan stale entries: %w", err)
	}
	if len(stale) > 0 {
		if err := s.redis.Del(ctx, stale...).Err(); err != nil {
			return gen, fmt.Errorf("query: delete stale entries: %w", err)
		}
	}
	return gen, nil
}

func genKey(family string) string {
	return redisKeyPrefix + "gen:" + family
}

func entryKey(family string, gen int64, param string) string {
	return fmt.Sprintf("%sentry:%s:%d:%s", redisKeyPrefix, family, gen, param)
}
