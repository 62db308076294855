package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/swarmflow/swarmflow/pkg/api"
)

// RedisStore is a Store on a Redis server. Keys:
//
//	<prefix>schedule:byfire   ZSET, member = entry id, score = NextFireAt (ms)
//	<prefix>schedule:entries  HASH, entry id -> JSON-encoded ScheduleEntry
//
// The sorted set gives Due a single ZRANGEBYSCORE; entry bodies live in the
// hash so replacing an entry's schedule fields does not change its sorted-set
// member identity. Put and Remove touch both keys inside a MULTI/EXEC
// pipeline.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore constructs a Redis-backed schedule store.
// prefix is optional but recommended (e.g. "swarmflow:").
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "swarmflow:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Ensure RedisStore implements Store.
var _ Store = (*RedisStore)(nil)

func (s *RedisStore) keyByFire() string  { return s.prefix + "schedule:byfire" }
func (s *RedisStore) keyEntries() string { return s.prefix + "schedule:entries" }

func (s *RedisStore) Put(ctx context.Context, e api.ScheduleEntry) error {
	data, err := json.Marshal(&e)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.keyEntries(), e.ID, data)
	pipe.ZAdd(ctx, s.keyByFire(), redis.Z{
		Score:  float64(e.NextFireAt.UnixMilli()),
		Member: e.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", api.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*api.ScheduleEntry, error) {
	data, err := s.client.HGet(ctx, s.keyEntries(), id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", api.ErrStoreUnavailable, err)
	}
	var e api.ScheduleEntry
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *RedisStore) Remove(ctx context.Context, id string) (bool, error) {
	pipe := s.client.TxPipeline()
	del := pipe.HDel(ctx, s.keyEntries(), id)
	pipe.ZRem(ctx, s.keyByFire(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("%w: %v", api.ErrStoreUnavailable, err)
	}
	return del.Val() > 0, nil
}

func (s *RedisStore) Due(ctx context.Context, now time.Time) ([]api.ScheduleEntry, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.keyByFire(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", api.ErrStoreUnavailable, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	bodies, err := s.client.HMGet(ctx, s.keyEntries(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", api.ErrStoreUnavailable, err)
	}
	out := make([]api.ScheduleEntry, 0, len(ids))
	for i, body := range bodies {
		raw, ok := body.(string)
		if !ok {
			// Entry removed between the two reads.
			continue
		}
		var e api.ScheduleEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("schedule entry %q: %w", ids[i], err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *RedisStore) Len(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, s.keyByFire()).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", api.ErrStoreUnavailable, err)
	}
	return int(n), nil
}
