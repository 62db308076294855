package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/swarmflow/swarmflow/pkg/api"
)

// SQLiteWriteExecutor performs step writes against a SQLite database. Each
// call runs inside one transaction so a step's operations land atomically.
type SQLiteWriteExecutor struct {
	db *sql.DB
}

// NewSQLiteWriteExecutor wraps an open database handle. Target tables must
// already exist; the executor does not create schema.
func NewSQLiteWriteExecutor(db *sql.DB) *SQLiteWriteExecutor {
	return &SQLiteWriteExecutor{db: db}
}

var _ WriteExecutor = (*SQLiteWriteExecutor)(nil)

func (s *SQLiteWriteExecutor) ExecuteWrites(ctx context.Context, ops []api.Operation, payload map[string]any) ([]api.WriteResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
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
		marks[i] = "?"
		args[i] = payload[col]
		data[col] = payload[col]
	}

	var query string
	if len(cols) == 0 {
		query = fmt.Sprintf(`INSERT INTO "%s" DEFAULT VALUES`, op.Table)
	} else {
		query = fmt.Sprintf(`INSERT INTO "%s" (%s) VALUES (%s)`,
			op.Table, strings.Join(quoted, ", "), strings.Join(marks, ", "))
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return api.WriteResult{}, fmt.Errorf("insert into %s: %w", op.Table, err)
	}
	if id, err := res.LastInsertId(); err == nil {
		data["id"] = float64(id)
	}
	return api.WriteResult{Table: op.Table, Data: data}, nil
}
