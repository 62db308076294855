package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/swarmflow/swarmflow/pkg/api"
)

// SQLiteStepStore persists step definitions as JSON documents keyed by name.
type SQLiteStepStore struct {
	db *sql.DB
}

// NewSQLiteStepStore initializes the steps schema in the given DB and
// returns a new store.
func NewSQLiteStepStore(db *sql.DB) (*SQLiteStepStore, error) {
	s := &SQLiteStepStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStepStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS step_definitions (
			name TEXT PRIMARY KEY,
			definition BLOB NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("%w: %v", api.ErrStoreUnavailable, err)
	}
	return nil
}

// Ensure SQLiteStepStore implements StepStore.
var _ StepStore = (*SQLiteStepStore)(nil)

func (s *SQLiteStepStore) SaveStep(ctx context.Context, def api.StepDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("%w: step has no name", api.ErrValidation)
	}
	data, err := json.Marshal(&def)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO step_definitions (name, definition)
		VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET definition = excluded.definition`,
		def.Name, data,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", api.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *SQLiteStepStore) GetStep(ctx context.Context, name string) (*api.StepDefinition, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT definition FROM step_definitions WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", api.ErrStepNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", api.ErrStoreUnavailable, err)
	}
	var def api.StepDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

func (s *SQLiteStepStore) ListSteps(ctx context.Context) ([]api.StepDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT definition FROM step_definitions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", api.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []api.StepDefinition
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var def api.StepDefinition
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, rows.Err()
}
