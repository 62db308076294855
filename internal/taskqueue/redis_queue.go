package taskqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/swarmflow/swarmflow/pkg/api"
)

// RedisQueue implements Queue on a Redis server. Keys:
//
//	<prefix>main               LIST of serialized tasks (LPUSH tail / RPOP head)
//	<prefix>inflight:<worker>  LIST of tasks reserved by a worker
//	<prefix>finished           LIST, append-only completed record
//	<prefix>dead               LIST, append-only dead-letter record
//
// Reserve uses LMOVE (right-pop from main, left-push to the worker's
// in-flight list) so the pop and the in-flight insert are a single atomic
// server-side operation.
type RedisQueue struct {
	client *redis.Client
	prefix string
}

// NewRedisQueue constructs a Redis-backed Queue.
// prefix is optional but recommended (e.g. "swarmflow:").
func NewRedisQueue(client *redis.Client, prefix string) *RedisQueue {
	if prefix == "" {
		prefix = "swarmflow:"
	}
	return &RedisQueue{client: client, prefix: prefix}
}

// Ensure RedisQueue implements Queue.
var _ Queue = (*RedisQueue)(nil)

func (q *RedisQueue) keyMain() string     { return q.prefix + "main" }
func (q *RedisQueue) keyFinished() string { return q.prefix + "finished" }
func (q *RedisQueue) keyDead() string     { return q.prefix + "dead" }

func (q *RedisQueue) keyInFlight(workerID string) string {
	return q.prefix + "inflight:" + workerID
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", api.ErrStoreUnavailable, err)
}

func (q *RedisQueue) Enqueue(ctx context.Context, t api.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	data, err := EncodeTask(t)
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, q.keyMain(), data).Err(); err != nil {
		return storeErr(err)
	}
	return nil
}

func (q *RedisQueue) Reserve(ctx context.Context, workerID string) (*api.Task, error) {
	data, err := q.client.LMove(ctx, q.keyMain(), q.keyInFlight(workerID), "RIGHT", "LEFT").Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return DecodeTask([]byte(data))
}

func (q *RedisQueue) Ack(ctx context.Context, workerID, taskID string) error {
	key := q.keyInFlight(workerID)
	held, err := q.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return storeErr(err)
	}
	for _, raw := range held {
		t, err := DecodeTask([]byte(raw))
		if err != nil {
			continue
		}
		if t.ID == taskID {
			if err := q.client.LRem(ctx, key, 1, raw).Err(); err != nil {
				return storeErr(err)
			}
			return nil
		}
	}
	return fmt.Errorf("task %q not held by worker %q", taskID, workerID)
}

func (q *RedisQueue) InFlight(ctx context.Context, workerID string) ([]api.Task, error) {
	held, err := q.client.LRange(ctx, q.keyInFlight(workerID), 0, -1).Result()
	if err != nil {
		return nil, storeErr(err)
	}
	// LPUSH on reserve puts the newest reservation first; reverse so callers
	// see oldest first.
	out := make([]api.Task, 0, len(held))
	for i := len(held) - 1; i >= 0; i-- {
		t, err := DecodeTask([]byte(held[i]))
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, nil
}

func (q *RedisQueue) ClearInFlight(ctx context.Context, workerID string) error {
	if err := q.client.Del(ctx, q.keyInFlight(workerID)).Err(); err != nil {
		return storeErr(err)
	}
	return nil
}

func (q *RedisQueue) PushFinished(ctx context.Context, t api.Task) error {
	data, err := EncodeTask(t)
	if err != nil {
		return err
	}
	if err := q.client.RPush(ctx, q.keyFinished(), data).Err(); err != nil {
		return storeErr(err)
	}
	return nil
}

func (q *RedisQueue) Finished(ctx context.Context) ([]api.Task, error) {
	items, err := q.client.LRange(ctx, q.keyFinished(), 0, -1).Result()
	if err != nil {
		return nil, storeErr(err)
	}
	out := make([]api.Task, 0, len(items))
	for _, raw := range items {
		t, err := DecodeTask([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, nil
}

func (q *RedisQueue) FinishedCount(ctx context.Context) (int, error) {
	n, err := q.client.LLen(ctx, q.keyFinished()).Result()
	if err != nil {
		return 0, storeErr(err)
	}
	return int(n), nil
}

func (q *RedisQueue) PushDead(ctx context.Context, t api.Task) error {
	data, err := EncodeTask(t)
	if err != nil {
		return err
	}
	if err := q.client.RPush(ctx, q.keyDead(), data).Err(); err != nil {
		return storeErr(err)
	}
	return nil
}

func (q *RedisQueue) DeadCount(ctx context.Context) (int, error) {
	n, err := q.client.LLen(ctx, q.keyDead()).Result()
	if err != nil {
		return 0, storeErr(err)
	}
	return int(n), nil
}

func (q *RedisQueue) Len(ctx context.Context) (int, error) {
	n, err := q.client.LLen(ctx, q.keyMain()).Result()
	if err != nil {
		return 0, storeErr(err)
	}
	return int(n), nil
}
