// Package persistence holds the collaborator stores the engine core needs:
// the step definition lookup and the transactional write executor. Both are
// deliberately small; schema management and the full definition CRUD surface
// live outside this module.
package persistence

import (
	"context"
	"fmt"
	"sync"

	"github.com/swarmflow/swarmflow/pkg/api"
)

// StepStore is the read-mostly home of workflow step definitions.
type StepStore interface {
	// SaveStep inserts or replaces a definition by name.
	SaveStep(ctx context.Context, def api.StepDefinition) error
	// GetStep returns the definition with the given name, or ErrStepNotFound.
	GetStep(ctx context.Context, name string) (*api.StepDefinition, error)
	// ListSteps returns all definitions.
	ListSteps(ctx context.Context) ([]api.StepDefinition, error)
}

// MemoryStepStore is a StepStore backed by a map under a mutex.
type MemoryStepStore struct {
	mu    sync.RWMutex
	steps map[string]api.StepDefinition
}

// NewMemoryStepStore creates an empty in-memory step store.
func NewMemoryStepStore() *MemoryStepStore {
	return &MemoryStepStore{steps: make(map[string]api.StepDefinition)}
}

// Ensure MemoryStepStore implements StepStore.
var _ StepStore = (*MemoryStepStore)(nil)

func (s *MemoryStepStore) SaveStep(ctx context.Context, def api.StepDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("%w: step has no name", api.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps[def.Name] = def
	return nil
}

func (s *MemoryStepStore) GetStep(ctx context.Context, name string) (*api.StepDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.steps[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", api.ErrStepNotFound, name)
	}
	return &def, nil
}

func (s *MemoryStepStore) ListSteps(ctx context.Context) ([]api.StepDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]api.StepDefinition, 0, len(s.steps))
	for _, def := range s.steps {
		out = append(out, def)
	}
	return out, nil
}
