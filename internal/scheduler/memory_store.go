package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/swarmflow/swarmflow/pkg/api"
)

// MemoryStore is a Store backed by a map under a mutex.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]api.ScheduleEntry
}

// NewMemoryStore creates an empty in-memory schedule store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]api.ScheduleEntry)}
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Put(ctx context.Context, e api.ScheduleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.Task = e.Task.Clone()
	s.entries[e.ID] = e
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*api.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, nil
	}
	e.Task = e.Task.Clone()
	return &e, nil
}

func (s *MemoryStore) Remove(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return false, nil
	}
	delete(s.entries, id)
	return true, nil
}

func (s *MemoryStore) Due(ctx context.Context, now time.Time) ([]api.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []api.ScheduleEntry
	for _, e := range s.entries {
		if !e.NextFireAt.After(now) {
			e.Task = e.Task.Clone()
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].NextFireAt.Before(out[j].NextFireAt)
	})
	return out, nil
}

func (s *MemoryStore) Len(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), nil
}
