package persistence

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/swarmflow/swarmflow/pkg/api"
)

// WriteExecutor performs a step's relational writes. All operations of one
// step commit together or not at all.
type WriteExecutor interface {
	ExecuteWrites(ctx context.Context, ops []api.Operation, payload map[string]any) ([]api.WriteResult, error)
}

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

// MemoryWriteExecutor applies writes to in-process tables. It backs tests
// and single-process deployments that do not need a relational store.
type MemoryWriteExecutor struct {
	mu     sync.Mutex
	nextID int64
	tables map[string][]map[string]any
}

// NewMemoryWriteExecutor creates an empty in-memory executor.
func NewMemoryWriteExecutor() *MemoryWriteExecutor {
	return &MemoryWriteExecutor{tables: make(map[string][]map[string]any)}
}

// Ensure MemoryWriteExecutor implements WriteExecutor.
var _ WriteExecutor = (*MemoryWriteExecutor)(nil)

func (m *MemoryWriteExecutor) ExecuteWrites(ctx context.Context, ops []api.Operation, payload map[string]any) ([]api.WriteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Stage everything first so a bad operation leaves no partial writes.
	type staged struct {
		table string
		row   map[string]any
	}
	var rows []staged
	var results []api.WriteResult
	for _, op := range ops {
		if err := validIdent(op.Table); err != nil {
			return nil, err
		}
		row := map[string]any{"id": float64(m.nextID + int64(len(rows)) + 1)}
		for key := range op.Fields {
			if v, ok := payload[key]; ok {
				row[key] = v
			}
		}
		rows = append(rows, staged{table: op.Table, row: row})
		results = append(results, api.WriteResult{Table: op.Table, Data: row})
	}
	for _, r := range rows {
		m.tables[r.table] = append(m.tables[r.table], r.row)
		m.nextID++
	}
	return results, nil
}

// Rows returns a copy of the rows written to a table, for inspection in
// tests.
func (m *MemoryWriteExecutor) Rows(table string) []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.tables[table]
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		cp := make(map[string]any, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out[i] = cp
	}
	return out
}
