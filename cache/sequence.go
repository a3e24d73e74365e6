package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Gin_postgres_redis_asset_lending/lending"

	"github.com/redis/go-redis/v9"
)

// SeedFunc returns the highest loan sequence already used for day.
type SeedFunc func(ctx context.Context, day string) (int, error)

// RedisSequence hands out loan numbers with INCR on one key per day. A missing
// key is seeded with SETNX from SeedFunc, so a flushed or expired key never
// restarts a day at 1.
type RedisSequence struct {
	rdb  *redis.Client
	seed SeedFunc
	ttl  time.Duration
}

var _ lending.Sequence = (*RedisSequence)(nil)

// INCR only when the key exists; a nil reply means "seed first".
var incrIfExists = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return redis.call('INCR', KEYS[1])
end
return false
`)

func NewRedisSequence(rdb *redis.Client, seed SeedFunc) *RedisSequence {
	return &RedisSequence{rdb: rdb, seed: seed, ttl: 48 * time.Hour}
}

func seqKey(day string) string { return "lending:seq:" + day }

func (s *RedisSequence) Next(ctx context.Context, day string) (int, error) {
	k := seqKey(day)
	for attempt := 0; attempt < 3; attempt++ {
		n, err := incrIfExists.Run(ctx, s.rdb, []string{k}).Int()
		if err == nil {
			return n, nil
		}
		if !errors.Is(err, redis.Nil) {
			return 0, err
		}

		seed, err := s.seed(ctx, day)
		if err != nil {
			return 0, fmt.Errorf("seed sequence %s: %w", day, err)
		}
		// 并发时只有一个 SETNX 生效，其余直接进入下一轮 INCR
		if err := s.rdb.SetNX(ctx, k, seed, s.ttl).Err(); err != nil {
			return 0, err
		}
	}
	return 0, fmt.Errorf("sequence %s: key expired while seeding", day)
}
