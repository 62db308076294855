package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/swarmflow/swarmflow/internal/persistence"
	"github.com/swarmflow/swarmflow/pkg/api"
)

// Table and column names come from step definitions authored by operators;
// they are identifiers, never parameterizable, so they are validated against
// a closed shape instead of being spliced into SQL as-is.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("%w: invalid identifier %q", api.ErrValidation, name)
	}
	return nil
}

// PostgresWriteExecutor performs step writes against a PostgreSQL database.
// Each call runs inside one transaction so a step's operations land
// atomically. Target tables must already exist.
type PostgresWriteExecutor struct {
	db *sql.DB
}

// NewPostgresWriteExecutor wraps an open database handle.
func NewPostgresWriteExecutor(db *sql.DB) *PostgresWriteExecutor {
	return &PostgresWriteExecutor{db: db}
}

var _ persistence.WriteExecutor = (*PostgresWriteExecutor)(nil)

func (p *PostgresWriteExecutor) ExecuteWrites(ctx context.Context, ops []api.Operation, payload map[string]any) ([]api.WriteResult, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin write transaction: %w", err)
	}
	defer tx.Rollback()

	var results []api.WriteResult
	for _, op := range ops {
		res, err := insertOne(ctx, tx, op, payload)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit step writes: %w", err)
	}
	return results, nil
}

func insertOne(ctx context.Context, tx *sql.Tx, op api.Operation, payload map[string]any) (api.WriteResult, error) {
	if err := validIdent(op.Table); err != nil {
		return api.WriteResult{}, err
	}
	var cols []string
	for col := range op.Fields {
		if err := validIdent(col); err != nil {
			return api.WriteResult{}, err
		}
		if _, ok := payload[col]; ok {
			cols = append(cols, col)
		}
	}
	sort.Strings(cols)

	data := make(map[string]any, len(cols)+1)
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		quoted[i] = `"` + col + `"`
		marks[i] = fmt.Sprintf("$%d", i+1)
		args[i] = payload[col]
		data[col] = payload[col]
	}

	var query string
	if len(cols) == 0 {
		query = fmt.Sprintf(`INSERT INTO "%s" DEFAULT VALUES RETURNING id`, op.Table)
	} else {
		query = fmt.Sprintf(`INSERT INTO "%s" (%s) VALUES (%s) RETURNING id`,
			op.Table, strings.Join(quoted, ", "), strings.Join(marks, ", "))
	}
	var id int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return api.WriteResult{}, fmt.Errorf("insert into %s: %w", op.Table, err)
	}
	data["id"] = float64(id)
	return api.WriteResult{Table: op.Table, Data: data}, nil
}
