package scheduler

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/swarmflow/swarmflow/pkg/api"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = db.Close()
	})

	s, err := NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	return s
}

func testEntry(id string, next time.Time) api.ScheduleEntry {
	return api.ScheduleEntry{
		ID: id,
		Task: api.Task{
			ID:       "tpl-" + id,
			Callback: "http://app:8000/forms/x",
			Starter:  true,
		},
		Unit:       api.UnitMinutes,
		Interval:   5,
		NextFireAt: next,
	}
}

func TestSQLiteStore_PutGetRemove(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	e := testEntry("s1", now)
	if err := s.Put(ctx, e); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil || got.ID != "s1" || got.Interval != 5 {
		t.Fatalf("unexpected entry: %+v", got)
	}

	// Put with the same id replaces.
	e.Interval = 10
	e.NextFireAt = now.Add(time.Hour)
	if err := s.Put(ctx, e); err != nil {
		t.Fatalf("Put replace failed: %v", err)
	}
	got, _ = s.Get(ctx, "s1")
	if got.Interval != 10 {
		t.Fatalf("replace did not stick: %+v", got)
	}
	if n, _ := s.Len(ctx); n != 1 {
		t.Fatalf("Len = %d, want 1", n)
	}

	ok, err := s.Remove(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("Remove = (%v, %v), want (true, nil)", ok, err)
	}
	ok, err = s.Remove(ctx, "s1")
	if err != nil || ok {
		t.Fatalf("second Remove = (%v, %v), want (false, nil)", ok, err)
	}
	got, err = s.Get(ctx, "s1")
	if err != nil || got != nil {
		t.Fatalf("Get after remove = (%+v, %v), want (nil, nil)", got, err)
	}
}

func TestSQLiteStore_DueOrdering(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_ = s.Put(ctx, testEntry("later", now.Add(2*time.Minute)))
	_ = s.Put(ctx, testEntry("soon", now.Add(time.Minute)))
	_ = s.Put(ctx, testEntry("future", now.Add(time.Hour)))

	due, err := s.Due(ctx, now.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("Due failed: %v", err)
	}
	if len(due) != 2 || due[0].ID != "soon" || due[1].ID != "later" {
		t.Fatalf("unexpected due entries: %+v", due)
	}

	due, err = s.Due(ctx, now)
	if err != nil {
		t.Fatalf("Due failed: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("expected nothing due at %v, got %+v", now, due)
	}
}
