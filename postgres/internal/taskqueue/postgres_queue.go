// Package taskqueue implements the task queue over PostgreSQL.
package taskqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/swarmflow/swarmflow/internal/taskqueue"
	"github.com/swarmflow/swarmflow/pkg/api"
)

const (
	stateQueued   = "queued"
	stateInFlight = "inflight"
	stateFinished = "finished"
	stateDead     = "dead"
)

// PostgresQueue is a persistent Queue backed by a single table. FIFO order
// follows the sequence column; reservation claims the oldest queued row with
// FOR UPDATE SKIP LOCKED, so concurrent workers never block on or double-claim
// the same row.
type PostgresQueue struct {
	db *sql.DB
}

// NewPostgresQueue initializes the queue schema in the given DB and returns
// a new queue.
func NewPostgresQueue(db *sql.DB) (*PostgresQueue, error) {
	q := &PostgresQueue{db: db}
	if err := q.initSchema(); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *PostgresQueue) initSchema() error {
	_, err := q.db.Exec(`
		CREATE TABLE IF NOT EXISTS queue_tasks (
			seq BIGSERIAL PRIMARY KEY,
			task_id TEXT NOT NULL,
			state TEXT NOT NULL,
			worker_id TEXT,
			payload BYTEA NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_queue_tasks_state
			ON queue_tasks(state, seq);
	`)
	if err != nil {
		return fmt.Errorf("%w: %v", api.ErrStoreUnavailable, err)
	}
	return nil
}

var _ taskqueue.Queue = (*PostgresQueue)(nil)

func (q *PostgresQueue) Enqueue(ctx context.Context, t api.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return q.pushRecord(ctx, t, stateQueued)
}

func (q *PostgresQueue) Reserve(ctx context.Context, workerID string) (*api.Task, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr(err)
	}
	defer tx.Rollback()

	var (
		seq     int64
		payload []byte
	)
	err = tx.QueryRowContext(ctx, `
		SELECT seq, payload
		FROM queue_tasks
		WHERE state = $1
		ORDER BY seq
		LIMIT 1
		FOR UPDATE SKIP LOCKED`, stateQueued).Scan(&seq, &payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr(err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE queue_tasks
		SET state = $1, worker_id = $2
		WHERE seq = $3`,
		stateInFlight, workerID, seq,
	)
	if err != nil {
		return nil, storeErr(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storeErr(err)
	}
	return taskqueue.DecodeTask(payload)
}

func (q *PostgresQueue) Ack(ctx context.Context, workerID, taskID string) error {
	res, err := q.db.ExecContext(ctx, `
		DELETE FROM queue_tasks
		WHERE seq IN (
			SELECT seq FROM queue_tasks
			WHERE state = $1 AND worker_id = $2 AND task_id = $3
			ORDER BY seq
			LIMIT 1
		)`, stateInFlight, workerID, taskID)
	if err != nil {
		return storeErr(err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return fmt.Errorf("task %q not held by worker %q", taskID, workerID)
	}
	return nil
}

func (q *PostgresQueue) InFlight(ctx context.Context, workerID string) ([]api.Task, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT payload FROM queue_tasks
		WHERE state = $1 AND worker_id = $2
		ORDER BY seq`, stateInFlight, workerID)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (q *PostgresQueue) ClearInFlight(ctx context.Context, workerID string) error {
	_, err := q.db.ExecContext(ctx, `
		DELETE FROM queue_tasks
		WHERE state = $1 AND worker_id = $2`, stateInFlight, workerID)
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func (q *PostgresQueue) PushFinished(ctx context.Context, t api.Task) error {
	return q.pushRecord(ctx, t, stateFinished)
}

func (q *PostgresQueue) Finished(ctx context.Context) ([]api.Task, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT payload FROM queue_tasks
		WHERE state = $1
		ORDER BY seq`, stateFinished)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (q *PostgresQueue) FinishedCount(ctx context.Context) (int, error) {
	return q.countState(ctx, stateFinished)
}

func (q *PostgresQueue) PushDead(ctx context.Context, t api.Task) error {
	return q.pushRecord(ctx, t, stateDead)
}

func (q *PostgresQueue) DeadCount(ctx context.Context) (int, error) {
	return q.countState(ctx, stateDead)
}

func (q *PostgresQueue) Len(ctx context.Context) (int, error) {
	return q.countState(ctx, stateQueued)
}

func (q *PostgresQueue) pushRecord(ctx context.Context, t api.Task, state string) error {
	data, err := taskqueue.EncodeTask(t)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, `
		INSERT INTO queue_tasks (task_id, state, payload)
		VALUES ($1, $2, $3)`, t.ID, state, data)
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func (q *PostgresQueue) countState(ctx context.Context, state string) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM queue_tasks WHERE state = $1`, state).Scan(&n)
	if err != nil {
		return 0, storeErr(err)
	}
	return n, nil
}

func scanTasks(rows *sql.Rows) ([]api.Task, error) {
	var out []api.Task
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		t, err := taskqueue.DecodeTask(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", api.ErrStoreUnavailable, err)
}
