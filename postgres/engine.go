// Package postgres provides PostgreSQL-backed implementations of the
// swarmflow engine components: the task queue, the step definition store,
// the write executor, and the schedule store.
package postgres

import (
	"database/sql"

	"github.com/swarmflow/swarmflow/internal/engine"
	"github.com/swarmflow/swarmflow/pkg/api"

	ppersist "github.com/swarmflow/swarmflow/postgres/internal/persistence"
	psched "github.com/swarmflow/swarmflow/postgres/internal/scheduler"
	pqueue "github.com/swarmflow/swarmflow/postgres/internal/taskqueue"
)

// Options tunes the engine; see the root package.
type Options = engine.Options

// NewPostgresEngine returns an Engine whose queue, schedules, and step
// definitions live in the given database, with step writes executed against
// the same database.
func NewPostgresEngine(db *sql.DB, opts Options) (api.Engine, error) {
	q, err := pqueue.NewPostgresQueue(db)
	if err != nil {
		return nil, err
	}
	steps, err := ppersist.NewPostgresStepStore(db)
	if err != nil {
		return nil, err
	}
	store, err := psched.NewPostgresStore(db)
	if err != nil {
		return nil, err
	}
	return engine.New(q, steps, ppersist.NewPostgresWriteExecutor(db), store, opts), nil
}
