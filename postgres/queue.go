package postgres

import (
	"database/sql"

	"github.com/swarmflow/swarmflow"
	pqueue "github.com/swarmflow/swarmflow/postgres/internal/taskqueue"
)

// NewPostgresQueue returns a standalone PostgreSQL-backed task queue, for
// deployments that wire their own workers.
func NewPostgresQueue(db *sql.DB) (swarmflow.Queue, error) {
	return pqueue.NewPostgresQueue(db)
}
