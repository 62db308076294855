// Package scheduler maintains recurring starter tasks and promotes the ones
// whose time has come into the task queue.
package scheduler

import (
	"context"
	"time"

	"github.com/swarmflow/swarmflow/pkg/api"
)

// Store holds schedule entries ordered by their next firing time. Put and
// Remove must be atomic single operations (remove-if-present / insert) so
// concurrent modifications through the API never observe a half-written
// entry.
type Store interface {
	// Put inserts the entry or replaces the entry with the same ID.
	Put(ctx context.Context, e api.ScheduleEntry) error

	// Get returns the entry with the given id, or (nil, nil) when absent.
	Get(ctx context.Context, id string) (*api.ScheduleEntry, error)

	// Remove deletes the entry; it reports false when no entry with that id
	// exists.
	Remove(ctx context.Context, id string) (bool, error)

	// Due returns every entry with NextFireAt <= now, soonest first.
	Due(ctx context.Context, now time.Time) ([]api.ScheduleEntry, error)

	// Len returns the number of stored entries.
	Len(ctx context.Context) (int, error)
}
