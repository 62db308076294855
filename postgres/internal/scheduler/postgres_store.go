// Package scheduler implements the schedule store over PostgreSQL.
package scheduler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/swarmflow/swarmflow/internal/scheduler"
	"github.com/swarmflow/swarmflow/pkg/api"
)

// PostgresStore is a persistent schedule store backed by a table indexed on
// the next firing time.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore initializes the schedule schema in the given DB and
// returns a new store.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schedule_entries (
			id TEXT PRIMARY KEY,
			payload JSONB NOT NULL,
			next_fire_at BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_schedule_next_fire
			ON schedule_entries(next_fire_at);
	`)
	if err != nil {
		return fmt.Errorf("%w: %v", api.ErrStoreUnavailable, err)
	}
	return nil
}

var _ scheduler.Store = (*PostgresStore)(nil)

func (s *PostgresStore) Put(ctx context.Context, e api.ScheduleEntry) error {
	data, err := json.Marshal(&e)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO schedule_entries (id, payload, next_fire_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			payload = EXCLUDED.payload,
			next_fire_at = EXCLUDED.next_fire_at`,
		e.ID, data, e.NextFireAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", api.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*api.ScheduleEntry, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM schedule_entries WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", api.ErrStoreUnavailable, err)
	}
	var e api.ScheduleEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *PostgresStore) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM schedule_entries WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("%w: %v", api.ErrStoreUnavailable, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *PostgresStore) Due(ctx context.Context, now time.Time) ([]api.ScheduleEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM schedule_entries
		WHERE next_fire_at <= $1
		ORDER BY next_fire_at`, now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", api.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []api.ScheduleEntry
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var e api.ScheduleEntry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Len(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM schedule_entries`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", api.ErrStoreUnavailable, err)
	}
	return n, nil
}
