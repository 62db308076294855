package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/swarmflow/swarmflow/pkg/api"
)

func TestMemoryStore_PutGetRemove(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := s.Put(ctx, testEntry("s1", now)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := s.Get(ctx, "s1")
	if err != nil || got == nil || got.ID != "s1" {
		t.Fatalf("Get = (%+v, %v)", got, err)
	}

	// The stored entry must not alias the caller's task fields.
	got.Task.Fields = append(got.Task.Fields, api.Field{Name: "mutated"})
	again, _ := s.Get(ctx, "s1")
	if len(again.Task.Fields) != 0 {
		t.Fatalf("store aliased caller's fields: %+v", again.Task.Fields)
	}

	ok, _ := s.Remove(ctx, "s1")
	if !ok {
		t.Fatal("Remove reported absent for existing entry")
	}
	ok, _ = s.Remove(ctx, "s1")
	if ok {
		t.Fatal("Remove reported present for deleted entry")
	}
}

func TestMemoryStore_DueBoundary(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_ = s.Put(ctx, testEntry("exact", now))
	_ = s.Put(ctx, testEntry("past", now.Add(-time.Minute)))
	_ = s.Put(ctx, testEntry("future", now.Add(time.Minute)))

	due, err := s.Due(ctx, now)
	if err != nil {
		t.Fatalf("Due failed: %v", err)
	}
	// next_fire_at <= now is due; strictly-future is not.
	if len(due) != 2 || due[0].ID != "past" || due[1].ID != "exact" {
		t.Fatalf("unexpected due entries: %+v", due)
	}
}
