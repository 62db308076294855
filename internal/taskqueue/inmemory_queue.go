package taskqueue

import (
	"context"
	"fmt"
	"sync"

	"github.com/swarmflow/swarmflow/pkg/api"
)

// InMemoryQueue is a Queue implementation backed by plain slices under a
// mutex. It is safe for concurrent use and is the default for tests and
// single-process deployments.
type InMemoryQueue struct {
	mu       sync.Mutex
	main     []api.Task
	inFlight map[string][]api.Task
	finished []api.Task
	dead     []api.Task
}

// NewInMemoryQueue creates an empty in-memory queue.
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		inFlight: make(map[string][]api.Task),
	}
}

// Ensure InMemoryQueue implements Queue.
var _ Queue = (*InMemoryQueue)(nil)

func (q *InMemoryQueue) Enqueue(ctx context.Context, t api.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.main = append(q.main, t.Clone())
	return nil
}

func (q *InMemoryQueue) Reserve(ctx context.Context, workerID string) (*api.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.main) == 0 {
		return nil, nil
	}
	t := q.main[0]
	q.main = q.main[1:]
	q.inFlight[workerID] = append(q.inFlight[workerID], t)
	out := t.Clone()
	return &out, nil
}

func (q *InMemoryQueue) Ack(ctx context.Context, workerID, taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	held := q.inFlight[workerID]
	for i, t := range held {
		if t.ID == taskID {
			q.inFlight[workerID] = append(held[:i:i], held[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("task %q not held by worker %q", taskID, workerID)
}

func (q *InMemoryQueue) InFlight(ctx context.Context, workerID string) ([]api.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	held := q.inFlight[workerID]
	out := make([]api.Task, len(held))
	for i, t := range held {
		out[i] = t.Clone()
	}
	return out, nil
}

func (q *InMemoryQueue) ClearInFlight(ctx context.Context, workerID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inFlight, workerID)
	return nil
}

func (q *InMemoryQueue) PushFinished(ctx context.Context, t api.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.finished = append(q.finished, t.Clone())
	return nil
}

func (q *InMemoryQueue) Finished(ctx context.Context) ([]api.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]api.Task, len(q.finished))
	for i, t := range q.finished {
		out[i] = t.Clone()
	}
	return out, nil
}

func (q *InMemoryQueue) FinishedCount(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.finished), nil
}

func (q *InMemoryQueue) PushDead(ctx context.Context, t api.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dead = append(q.dead, t.Clone())
	return nil
}

func (q *InMemoryQueue) DeadCount(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.dead), nil
}

func (q *InMemoryQueue) Len(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.main), nil
}
