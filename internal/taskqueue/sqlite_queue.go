package taskqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/swarmflow/swarmflow/pkg/api"
)

// Task states within the SQLite queue table.
const (
	stateQueued   = "queued"
	stateInFlight = "inflight"
	stateFinished = "finished"
	stateDead     = "dead"
)

// SQLiteQueue is a persistent Queue backed by a single SQLite table. FIFO
// order follows the auto-incrementing row id; reservation claims the oldest
// queued row inside a transaction, which gives the required at-most-one-holder
// guarantee.
type SQLiteQueue struct {
	db *sql.DB
}

// NewSQLiteQueue initializes the queue schema in the given DB and returns a
// new queue.
func NewSQLiteQueue(db *sql.DB) (*SQLiteQueue, error) {
	q := &SQLiteQueue{db: db}
	if err := q.initSchema(); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *SQLiteQueue) initSchema() error {
	_, err := q.db.Exec(`
		CREATE TABLE IF NOT EXISTS queue_tasks (
			rowid_seq INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id TEXT NOT NULL,
			state TEXT NOT NULL,
			worker_id TEXT,
			payload BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_queue_tasks_state
			ON queue_tasks(state, rowid_seq);
	`)
	if err != nil {
		return fmt.Errorf("%w: %v", api.ErrStoreUnavailable, err)
	}
	return nil
}

// Ensure SQLiteQueue implements Queue.
var _ Queue = (*SQLiteQueue)(nil)

func (q *SQLiteQueue) Enqueue(ctx context.Context, t api.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	data, err := EncodeTask(t)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, `
		INSERT INTO queue_tasks (task_id, state, payload)
		VALUES (?, ?, ?)`,
		t.ID, stateQueued, data,
	)
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func (q *SQLiteQueue) Reserve(ctx context.Context, workerID string) (*api.Task, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr(err)
	}

	var (
		seq     int64
		payload []byte
	)
	err = tx.QueryRowContext(ctx, `
		SELECT rowid_seq, payload
		FROM queue_tasks
		WHERE state = ?
		ORDER BY rowid_seq
		LIMIT 1`, stateQueued).Scan(&seq, &payload)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr(err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE queue_tasks
		SET state = ?, worker_id = ?
		WHERE rowid_seq = ? AND state = ?`,
		stateInFlight, workerID, seq, stateQueued,
	)
	if err != nil {
		_ = tx.Rollback()
		return nil, storeErr(err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		// Lost the race to another transaction; treat as empty and let the
		// caller poll again.
		_ = tx.Rollback()
		return nil, nil
	}
	if err := tx.Commit(); err != nil {
		return nil, storeErr(err)
	}
	return DecodeTask(payload)
}

func (q *SQLiteQueue) Ack(ctx context.Context, workerID, taskID string) error {
	res, err := q.db.ExecContext(ctx, `
		DELETE FROM queue_tasks
		WHERE rowid_seq IN (
			SELECT rowid_seq FROM queue_tasks
			WHERE state = ? AND worker_id = ? AND task_id = ?
			ORDER BY rowid_seq
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

func (q *SQLiteQueue) InFlight(ctx context.Context, workerID string) ([]api.Task, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT payload FROM queue_tasks
		WHERE state = ? AND worker_id = ?
		ORDER BY rowid_seq`, stateInFlight, workerID)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (q *SQLiteQueue) ClearInFlight(ctx context.Context, workerID string) error {
	_, err := q.db.ExecContext(ctx, `
		DELETE FROM queue_tasks
		WHERE state = ? AND worker_id = ?`, stateInFlight, workerID)
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func (q *SQLiteQueue) PushFinished(ctx context.Context, t api.Task) error {
	return q.pushRecord(ctx, t, stateFinished)
}

func (q *SQLiteQueue) Finished(ctx context.Context) ([]api.Task, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT payload FROM queue_tasks
		WHERE state = ?
		ORDER BY rowid_seq`, stateFinished)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (q *SQLiteQueue) FinishedCount(ctx context.Context) (int, error) {
	return q.countState(ctx, stateFinished)
}

func (q *SQLiteQueue) PushDead(ctx context.Context, t api.Task) error {
	return q.pushRecord(ctx, t, stateDead)
}

func (q *SQLiteQueue) DeadCount(ctx context.Context) (int, error) {
	return q.countState(ctx, stateDead)
}

func (q *SQLiteQueue) Len(ctx context.Context) (int, error) {
	return q.countState(ctx, stateQueued)
}

func (q *SQLiteQueue) pushRecord(ctx context.Context, t api.Task, state string) error {
	data, err := EncodeTask(t)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, `
		INSERT INTO queue_tasks (task_id, state, payload)
		VALUES (?, ?, ?)`, t.ID, state, data)
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func (q *SQLiteQueue) countState(ctx context.Context, state string) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM queue_tasks WHERE state = ?`, state).Scan(&n)
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
		t, err := DecodeTask(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
