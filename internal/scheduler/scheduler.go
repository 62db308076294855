package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/swarmflow/swarmflow/internal/taskqueue"
	"github.com/swarmflow/swarmflow/pkg/api"
)

// DefaultTick is the polling period of the scheduler loop.
const DefaultTick = time.Second

// Config tunes a Scheduler.
type Config struct {
	// Tick is the polling period of Run. Defaults to DefaultTick.
	Tick time.Duration
	// Logger receives per-tick errors. Defaults to log.Default().
	Logger *log.Logger
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Scheduler promotes due starter tasks from a schedule Store into the task
// queue.
type Scheduler struct {
	store  Store
	queue  taskqueue.Queue
	logger *log.Logger
	tick   time.Duration
	now    func() time.Time
}

// New creates a Scheduler over the given store and queue.
func New(store Store, queue taskqueue.Queue, cfg Config) *Scheduler {
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Scheduler{
		store:  store,
		queue:  queue,
		logger: cfg.Logger,
		tick:   cfg.Tick,
		now:    cfg.Now,
	}
}

// Schedule registers a starter task template. The first firing is at
// now + interval·unit; the FireOnce sentinel makes it immediate.
func (s *Scheduler) Schedule(ctx context.Context, t api.Task, unit api.ScheduleUnit, interval int) (string, error) {
	e := api.ScheduleEntry{
		ID:       uuid.NewString(),
		Task:     t,
		Unit:     unit,
		Interval: interval,
	}
	if err := e.Validate(); err != nil {
		return "", err
	}
	next, err := e.NextAfter(s.now())
	if err != nil {
		return "", err
	}
	e.NextFireAt = next
	if err := s.store.Put(ctx, e); err != nil {
		return "", err
	}
	return e.ID, nil
}

// Modify replaces the entry's schedule fields and recomputes its next firing
// time from now. It reports false when no entry with that id exists.
func (s *Scheduler) Modify(ctx context.Context, id string, unit api.ScheduleUnit, interval int) (bool, error) {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if e == nil {
		return false, nil
	}
	e.Unit = unit
	e.Interval = interval
	if err := e.Validate(); err != nil {
		return false, err
	}
	next, err := e.NextAfter(s.now())
	if err != nil {
		return false, err
	}
	e.NextFireAt = next
	if err := s.store.Put(ctx, *e); err != nil {
		return false, err
	}
	return true, nil
}

// Remove deletes the entry; false when absent.
func (s *Scheduler) Remove(ctx context.Context, id string) (bool, error) {
	return s.store.Remove(ctx, id)
}

// Status returns the entry's observable state, or (nil, nil) when absent.
func (s *Scheduler) Status(ctx context.Context, id string) (*api.ScheduleStatus, error) {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, nil
	}
	return &api.ScheduleStatus{
		LastFiredAt: e.LastFiredAt,
		NextFireAt:  e.NextFireAt,
		Unit:        e.Unit,
		Interval:    e.Interval,
	}, nil
}

// DueTasks makes one pass over the currently-due starter entries: each is
// materialized into a fresh task, enqueued, stamped with LastFiredAt, and
// either rescheduled or, for FireOnce entries, removed. The returned slice
// holds the tasks enqueued during this pass.
//
// The task is enqueued before the schedule update, so a failure between the
// two may fire the entry again on the next tick. That keeps the promotion
// at-least-once, matching the queue's delivery contract.
func (s *Scheduler) DueTasks(ctx context.Context, now time.Time) ([]api.Task, error) {
	due, err := s.store.Due(ctx, now)
	if err != nil {
		return nil, err
	}

	var fired []api.Task
	for _, e := range due {
		if !e.Task.Starter {
			continue
		}

		t := e.Task.Materialize()
		if err := s.queue.Enqueue(ctx, t); err != nil {
			s.logger.Printf("[scheduler] enqueue for entry %s failed: %v", e.ID, err)
			continue
		}
		fired = append(fired, t)

		firedAt := now
		e.LastFiredAt = &firedAt

		if e.Interval == api.FireOnce {
			if _, err := s.store.Remove(ctx, e.ID); err != nil {
				s.logger.Printf("[scheduler] remove fire-once entry %s failed: %v", e.ID, err)
			}
			continue
		}

		next, err := e.NextAfter(now)
		if err != nil {
			s.logger.Printf("[scheduler] entry %s has invalid schedule: %v", e.ID, err)
			continue
		}
		e.NextFireAt = next
		if err := s.store.Put(ctx, e); err != nil {
			s.logger.Printf("[scheduler] reschedule entry %s failed: %v", e.ID, err)
		}
	}
	return fired, nil
}

// Run polls for due tasks until ctx is cancelled. A failed tick is logged and
// the loop continues on the following tick; a single failure never stops the
// scheduler.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fired, err := s.DueTasks(ctx, s.now())
			if err != nil {
				s.logger.Printf("[scheduler] tick failed: %v", err)
				continue
			}
			if len(fired) > 0 {
				s.logger.Printf("[scheduler] promoted %d starter task(s)", len(fired))
			}
		}
	}
}
