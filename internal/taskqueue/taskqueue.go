package taskqueue

import (
	"context"

	"github.com/swarmflow/swarmflow/pkg/api"
)

// Queue is the durable hand-off between task producers and workers. A single
// named queue holds serialized tasks in FIFO order; reservation atomically
// moves one task from the queue head into a per-worker in-flight record so no
// two workers ever hold the same task.
//
// Delivery is at-least-once: duplicate submission produces duplicate
// execution, and a worker that crashes before Ack leaves its task visible in
// the in-flight record for operator recovery.
type Queue interface {
	// Enqueue appends a task to the queue tail. No uniqueness check is
	// performed.
	Enqueue(ctx context.Context, t api.Task) error

	// Reserve atomically removes one task from the queue head and places it
	// in workerID's in-flight record. It returns (nil, nil) when the queue
	// is empty; emptiness is not an error.
	Reserve(ctx context.Context, workerID string) (*api.Task, error)

	// Ack removes the task from workerID's in-flight record once it reached
	// a terminal state (completed or abandoned).
	Ack(ctx context.Context, workerID, taskID string) error

	// InFlight returns the tasks currently reserved by workerID, oldest
	// first.
	InFlight(ctx context.Context, workerID string) ([]api.Task, error)

	// ClearInFlight drops workerID's entire in-flight record. Intended for
	// clean shutdown and operator recovery.
	ClearInFlight(ctx context.Context, workerID string) error

	// PushFinished appends a completed task to the append-only finished
	// record. The record is for observability only; dispatch never reads it.
	PushFinished(ctx context.Context, t api.Task) error

	// Finished returns the finished record, oldest first.
	Finished(ctx context.Context) ([]api.Task, error)

	// FinishedCount returns the size of the finished record.
	FinishedCount(ctx context.Context) (int, error)

	// PushDead appends a task whose execution was abandoned after exhausting
	// its retry budget.
	PushDead(ctx context.Context, t api.Task) error

	// DeadCount returns the size of the dead-letter record.
	DeadCount(ctx context.Context) (int, error)

	// Len returns the number of tasks waiting in the queue (not counting
	// in-flight, finished, or dead tasks).
	Len(ctx context.Context) (int, error)
}
