package taskqueue

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// newTestRedisQueue connects to the Redis named by SWARMFLOW_TEST_REDIS_ADDR
// and skips the test when the variable is unset.
func newTestRedisQueue(t *testing.T) *RedisQueue {
	t.Helper()

	addr := os.Getenv("SWARMFLOW_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SWARMFLOW_TEST_REDIS_ADDR not set; skipping Redis queue tests")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("redis ping failed: %v", err)
	}

	prefix := fmt.Sprintf("swarmflow-test:%d:", time.Now().UnixNano())
	t.Cleanup(func() {
		keys, _ := client.Keys(context.Background(), prefix+"*").Result()
		if len(keys) > 0 {
			_ = client.Del(context.Background(), keys...).Err()
		}
		_ = client.Close()
	})

	return NewRedisQueue(client, prefix)
}

func TestRedisQueue_FIFOReserveAck(t *testing.T) {
	q := newTestRedisQueue(t)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		if err := q.Enqueue(ctx, testTask(id)); err != nil {
			t.Fatalf("Enqueue %s failed: %v", id, err)
		}
	}
	if n, _ := q.Len(ctx); n != 3 {
		t.Fatalf("Len = %d, want 3", n)
	}

	got1, err := q.Reserve(ctx, "w1")
	if err != nil {
		t.Fatalf("Reserve 1 failed: %v", err)
	}
	got2, err := q.Reserve(ctx, "w1")
	if err != nil {
		t.Fatalf("Reserve 2 failed: %v", err)
	}
	if got1.ID != "1" || got2.ID != "2" {
		t.Fatalf("unexpected reservation order: %q, %q", got1.ID, got2.ID)
	}

	held, err := q.InFlight(ctx, "w1")
	if err != nil {
		t.Fatalf("InFlight failed: %v", err)
	}
	if len(held) != 2 || held[0].ID != "1" || held[1].ID != "2" {
		t.Fatalf("unexpected in-flight record: %+v", held)
	}

	if err := q.Ack(ctx, "w1", "1"); err != nil {
		t.Fatalf("Ack failed: %v", err)
	}
	held, _ = q.InFlight(ctx, "w1")
	if len(held) != 1 || held[0].ID != "2" {
		t.Fatalf("expected only task 2 in flight, got %+v", held)
	}

	if err := q.ClearInFlight(ctx, "w1"); err != nil {
		t.Fatalf("ClearInFlight failed: %v", err)
	}
	held, _ = q.InFlight(ctx, "w1")
	if len(held) != 0 {
		t.Fatalf("expected empty in-flight record, got %+v", held)
	}
}

func TestRedisQueue_ReserveEmpty(t *testing.T) {
	q := newTestRedisQueue(t)

	got, err := q.Reserve(context.Background(), "w1")
	if err != nil {
		t.Fatalf("Reserve on empty queue errored: %v", err)
	}
	if got != nil {
		t.Fatalf("Reserve on empty queue returned a task: %+v", got)
	}
}

func TestRedisQueue_ConcurrentReserveExactlyOnce(t *testing.T) {
	q := newTestRedisQueue(t)
	ctx := context.Background()

	const nTasks = 100
	const nWorkers = 8

	for i := 0; i < nTasks; i++ {
		if err := q.Enqueue(ctx, testTask(fmt.Sprintf("t-%03d", i))); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	var mu sync.Mutex
	seen := make(map[string]int, nTasks)

	var wg sync.WaitGroup
	for w := 0; w < nWorkers; w++ {
		wg.Add(1)
		go func(workerID string) {
			defer wg.Done()
			for {
				got, err := q.Reserve(ctx, workerID)
				if err != nil {
					t.Errorf("Reserve failed: %v", err)
					return
				}
				if got == nil {
					return
				}
				mu.Lock()
				seen[got.ID]++
				mu.Unlock()
			}
		}(fmt.Sprintf("w-%d", w))
	}
	wg.Wait()

	if len(seen) != nTasks {
		t.Fatalf("reserved %d distinct tasks, want %d", len(seen), nTasks)
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("task %q reserved %d times", id, n)
		}
	}
}

func TestRedisQueue_FinishedRecord(t *testing.T) {
	q := newTestRedisQueue(t)
	ctx := context.Background()

	_ = q.PushFinished(ctx, testTask("f1"))
	_ = q.PushFinished(ctx, testTask("f2"))

	if n, _ := q.FinishedCount(ctx); n != 2 {
		t.Fatalf("FinishedCount = %d, want 2", n)
	}
	fin, err := q.Finished(ctx)
	if err != nil {
		t.Fatalf("Finished failed: %v", err)
	}
	if len(fin) != 2 || fin[0].ID != "f1" || fin[1].ID != "f2" {
		t.Fatalf("unexpected finished record: %+v", fin)
	}
}
