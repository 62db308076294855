package swarmflow

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"

	"github.com/swarmflow/swarmflow/internal/engine"
	"github.com/swarmflow/swarmflow/internal/taskqueue"
	"github.com/swarmflow/swarmflow/pkg/api"
)

// Queue is the durable task hand-off consumed by workers. Backend packages
// return their queue implementations as this type.
type Queue = taskqueue.Queue

// Re-export key types so users don't need to dig into pkg/api.

type (
	Engine         = api.Engine
	Task           = api.Task
	Field          = api.Field
	Fields         = api.Fields
	Mode           = api.Mode
	ScheduleUnit   = api.ScheduleUnit
	ScheduleStatus = api.ScheduleStatus
	StepDefinition = api.StepDefinition
	Operation      = api.Operation
	NextStep       = api.NextStep
	Condition      = api.Condition
	Conditions     = api.Conditions
	WriteResult    = api.WriteResult
	StepOutcome    = api.StepOutcome
	ChainStatus    = api.ChainStatus
)

// Re-export mode and schedule constants for convenience.

const (
	ModeHuman = api.ModeHuman
	ModeAI    = api.ModeAI

	UnitMinutes = api.UnitMinutes
	UnitHours   = api.UnitHours
	UnitDays    = api.UnitDays

	// FireOnce schedules a starter that fires immediately and is then
	// removed.
	FireOnce = api.FireOnce

	ChainSpawned          = api.ChainSpawned
	ChainNoNextStep       = api.ChainNoNextStep
	ChainConditionsNotMet = api.ChainConditionsNotMet
)

// Options tunes an engine built by the constructors below.
type Options = engine.Options

// Engine constructors
// These wrap the internal/engine package so external callers
// never need to import internal packages.

// NewInMemoryEngine returns an Engine backed entirely by in-memory stores.
func NewInMemoryEngine(opts Options) Engine {
	return engine.NewInMemory(opts)
}

// NewSQLiteEngine returns an Engine that persists the queue, schedules, and
// step definitions in a SQLite database, and executes step writes against
// the same database.
func NewSQLiteEngine(db *sql.DB, opts Options) (Engine, error) {
	return engine.NewSQLite(db, opts)
}

// NewRedisEngine returns an Engine with the queue and schedules in Redis.
// All keys are namespaced under prefix.
func NewRedisEngine(client *redis.Client, prefix string, opts Options) Engine {
	return engine.NewRedis(client, prefix, opts)
}

// Convenience helpers that just forward to the underlying Engine.

// Submit validates a task and appends it to the dispatch queue.
func Submit(ctx context.Context, eng Engine, t Task) error {
	return eng.Submit(ctx, t)
}

// ExecuteStep runs a step's writes and chaining rule.
func ExecuteStep(ctx context.Context, eng Engine, stepName string, payload map[string]any) (*StepOutcome, error) {
	return eng.ExecuteStep(ctx, stepName, payload)
}

// ScheduleStarter registers a recurring starter task.
func ScheduleStarter(ctx context.Context, eng Engine, t Task, unit ScheduleUnit, interval int) (string, error) {
	return eng.ScheduleStarter(ctx, t, unit, interval)
}
