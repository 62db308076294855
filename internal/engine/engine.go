// Package engine assembles the queue, scheduler, persistence, and chainer
// into the Engine surface exposed by the root package.
package engine

import (
	"context"
	"database/sql"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/swarmflow/swarmflow/internal/chain"
	"github.com/swarmflow/swarmflow/internal/persistence"
	"github.com/swarmflow/swarmflow/internal/scheduler"
	"github.com/swarmflow/swarmflow/internal/taskqueue"
	"github.com/swarmflow/swarmflow/pkg/api"
)

// Options tune an engine's collaborators.
type Options struct {
	// CallbackBase is the URL prefix chained form callbacks are derived
	// from.
	CallbackBase string
	// Scheduler tunes the schedule promotion loop.
	Scheduler scheduler.Config
	// Logger receives per-iteration errors from the background loops.
	Logger *log.Logger
}

// Engine wires the collaborators together. Step writes and chaining share
// the queue with scheduled starter promotion.
type Engine struct {
	queue  taskqueue.Queue
	steps  persistence.StepStore
	writes persistence.WriteExecutor
	sched  *scheduler.Scheduler
	chain  *chain.Chainer
	logger *log.Logger
}

var _ api.Engine = (*Engine)(nil)

// New assembles an engine from explicit components. The backend packages
// use it; most callers want NewInMemory, NewSQLite, or NewRedis.
func New(q taskqueue.Queue, steps persistence.StepStore, writes persistence.WriteExecutor, store scheduler.Store, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	schedCfg := opts.Scheduler
	if schedCfg.Logger == nil {
		schedCfg.Logger = logger
	}
	return &Engine{
		queue:  q,
		steps:  steps,
		writes: writes,
		sched:  scheduler.New(store, q, schedCfg),
		chain:  chain.New(q, opts.CallbackBase, logger),
		logger: logger,
	}
}

// NewInMemory builds an engine with no external stores.
func NewInMemory(opts Options) *Engine {
	return New(
		taskqueue.NewInMemoryQueue(),
		persistence.NewMemoryStepStore(),
		persistence.NewMemoryWriteExecutor(),
		scheduler.NewMemoryStore(),
		opts,
	)
}

// NewSQLite builds an engine whose queue, schedules, step definitions, and
// step writes all live in the given database.
func NewSQLite(db *sql.DB, opts Options) (*Engine, error) {
	q, err := taskqueue.NewSQLiteQueue(db)
	if err != nil {
		return nil, err
	}
	steps, err := persistence.NewSQLiteStepStore(db)
	if err != nil {
		return nil, err
	}
	store, err := scheduler.NewSQLiteStore(db)
	if err != nil {
		return nil, err
	}
	return New(q, steps, persistence.NewSQLiteWriteExecutor(db), store, opts), nil
}

// NewRedis builds an engine with the queue and schedules in Redis. Step
// definitions and write results stay in process; pair with a SQL database
// when steps must survive restarts.
func NewRedis(client *redis.Client, prefix string, opts Options) *Engine {
	return New(
		taskqueue.NewRedisQueue(client, prefix),
		persistence.NewMemoryStepStore(),
		persistence.NewMemoryWriteExecutor(),
		scheduler.NewRedisStore(client, prefix),
		opts,
	)
}

// Queue exposes the task queue for worker wiring.
func (e *Engine) Queue() taskqueue.Queue { return e.queue }

// Logger exposes the engine's logger so bundles can share it.
func (e *Engine) Logger() *log.Logger { return e.logger }

// RunScheduler runs the schedule promotion loop until ctx is cancelled.
func (e *Engine) RunScheduler(ctx context.Context) { e.sched.Run(ctx) }

func (e *Engine) Submit(ctx context.Context, t api.Task) error {
	if t.ID == "" {
		t.ID = api.NewTaskID()
	}
	if err := t.Validate(); err != nil {
		return err
	}
	return e.queue.Enqueue(ctx, t)
}

func (e *Engine) DefineStep(ctx context.Context, def api.StepDefinition) error {
	return e.steps.SaveStep(ctx, def)
}

func (e *Engine) ExecuteStep(ctx context.Context, stepName string, payload map[string]any) (*api.StepOutcome, error) {
	def, err := e.steps.GetStep(ctx, stepName)
	if err != nil {
		return nil, err
	}
	results, err := e.writes.ExecuteWrites(ctx, def.Operations, payload)
	if err != nil {
		return nil, err
	}
	status, err := e.chain.Run(ctx, def, results)
	if err != nil {
		return nil, err
	}
	return &api.StepOutcome{Results: results, NextStep: status}, nil
}

func (e *Engine) ScheduleStarter(ctx context.Context, t api.Task, unit api.ScheduleUnit, interval int) (string, error) {
	return e.sched.Schedule(ctx, t, unit, interval)
}

func (e *Engine) ModifyStarter(ctx context.Context, id string, unit api.ScheduleUnit, interval int) (bool, error) {
	return e.sched.Modify(ctx, id, unit, interval)
}

func (e *Engine) RemoveStarter(ctx context.Context, id string) (bool, error) {
	return e.sched.Remove(ctx, id)
}

func (e *Engine) StarterStatus(ctx context.Context, id string) (*api.ScheduleStatus, error) {
	return e.sched.Status(ctx, id)
}
