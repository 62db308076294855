package api

import "context"

// Engine is the coordination surface of a swarmflow deployment: it accepts
// tasks for dispatch, executes workflow steps, and manages recurring starter
// tasks. Implementations live in internal/engine; construct one through the
// root package.
type Engine interface {
	// Submit validates a task and appends it to the dispatch queue.
	Submit(ctx context.Context, t Task) error

	// DefineStep inserts or replaces a workflow step definition.
	DefineStep(ctx context.Context, def StepDefinition) error

	// ExecuteStep runs the named step's writes with the given payload in one
	// transaction, then consults the step's chaining rule. Unknown names
	// yield ErrStepNotFound.
	ExecuteStep(ctx context.Context, stepName string, payload map[string]any) (*StepOutcome, error)

	// ScheduleStarter registers a starter task to fire every interval units,
	// or exactly once when interval is FireOnce. It returns the schedule id.
	ScheduleStarter(ctx context.Context, t Task, unit ScheduleUnit, interval int) (string, error)

	// ModifyStarter replaces a schedule's cadence, recomputing the next fire
	// time from now. It reports whether the schedule existed.
	ModifyStarter(ctx context.Context, id string, unit ScheduleUnit, interval int) (bool, error)

	// RemoveStarter deletes a schedule, reporting whether it existed.
	RemoveStarter(ctx context.Context, id string) (bool, error)

	// StarterStatus describes a schedule, or returns (nil, nil) when no
	// schedule has that id.
	StarterStatus(ctx context.Context, id string) (*ScheduleStatus, error)
}
