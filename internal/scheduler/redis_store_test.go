package scheduler

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	addr := os.Getenv("SWARMFLOW_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SWARMFLOW_TEST_REDIS_ADDR not set; skipping Redis schedule store tests")
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

	return NewRedisStore(client, prefix)
}

func TestRedisStore_PutGetRemove(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	if err := s.Put(ctx, testEntry("s1", now)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := s.Get(ctx, "s1")
	if err != nil || got == nil || got.ID != "s1" {
		t.Fatalf("Get = (%+v, %v)", got, err)
	}
	if n, _ := s.Len(ctx); n != 1 {
		t.Fatalf("Len = %d, want 1", n)
	}

	ok, err := s.Remove(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("Remove = (%v, %v), want (true, nil)", ok, err)
	}
	ok, _ = s.Remove(ctx, "s1")
	if ok {
		t.Fatal("second Remove reported present")
	}
}

func TestRedisStore_Due(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	_ = s.Put(ctx, testEntry("due", now.Add(-time.Minute)))
	_ = s.Put(ctx, testEntry("future", now.Add(time.Hour)))

	due, err := s.Due(ctx, now)
	if err != nil {
		t.Fatalf("Due failed: %v", err)
	}
	if len(due) != 1 || due[0].ID != "due" {
		t.Fatalf("unexpected due entries: %+v", due)
	}
}
