package api

import (
	"encoding/json"
	"fmt"
)

// Operation is one relational write performed by a step: an insert into
// Table using the payload keys named by Fields (payload key -> column type
// hint, as authored in the step definition).
type Operation struct {
	Table  string            `json:"table"`
	Fields map[string]string `json:"data"`
}

// CompareOp is the closed set of condition operators. Conditions are tagged
// data, never executable code.
type CompareOp string

const (
	OpEq CompareOp = "eq"
	OpGt CompareOp = "gt"
	OpLt CompareOp = "lt"
	OpIn CompareOp = "in"
)

// Condition is a single comparison against a field of a step's write result.
// On the wire it is either a bare scalar (shorthand for eq) or a tagged
// object: {"op": "gt", "value": 5}.
type Condition struct {
	Op    CompareOp
	Value any
}

func (c Condition) MarshalJSON() ([]byte, error) {
	if c.Op == OpEq {
		return json.Marshal(c.Value)
	}
	return json.Marshal(struct {
		Op    CompareOp `json:"op"`
		Value any       `json:"value"`
	}{c.Op, c.Value})
}

func (c *Condition) UnmarshalJSON(data []byte) error {
	var tagged struct {
		Op    *CompareOp `json:"op"`
		Value any        `json:"value"`
	}
	if err := json.Unmarshal(data, &tagged); err == nil && tagged.Op != nil {
		switch *tagged.Op {
		case OpEq, OpGt, OpLt, OpIn:
		default:
			return fmt.Errorf("%w: unknown condition op %q", ErrValidation, *tagged.Op)
		}
		c.Op = *tagged.Op
		c.Value = tagged.Value
		return nil
	}
	var scalar any
	if err := json.Unmarshal(data, &scalar); err != nil {
		return err
	}
	c.Op = OpEq
	c.Value = scalar
	return nil
}

// Matches evaluates the condition against an actual value from a write
// result. Numbers are compared as float64; eq also compares strings and
// booleans directly.
func (c Condition) Matches(actual any) bool {
	switch c.Op {
	case OpEq, "":
		return scalarEqual(actual, c.Value)
	case OpGt:
		a, b, ok := numericPair(actual, c.Value)
		return ok && a > b
	case OpLt:
		a, b, ok := numericPair(actual, c.Value)
		return ok && a < b
	case OpIn:
		set, ok := c.Value.([]any)
		if !ok {
			return false
		}
		for _, v := range set {
			if scalarEqual(actual, v) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func scalarEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if x, y, ok := numericPair(a, b); ok {
		return x == y
	}
	return a == b
}

func numericPair(a, b any) (float64, float64, bool) {
	x, okA := asFloat(a)
	y, okB := asFloat(b)
	return x, y, okA && okB
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Conditions maps table -> field -> expected comparison. Tables not mentioned
// are not checked; an empty map always evaluates true.
type Conditions map[string]map[string]Condition

// NextStep declares the step spawned when a step's conditions hold.
type NextStep struct {
	// Step is the target step name.
	Step string `json:"step"`
	// Form names the chained form; the spawned task's callback is derived
	// from it.
	Form string `json:"form_name"`
	// Type is the spawned task's execution mode.
	Type Mode `json:"type"`
	// External marks the spawned task as externally fulfilled.
	External bool `json:"external"`
	// Conditions gate the spawn, evaluated over the completed step's write
	// results.
	Conditions Conditions `json:"conditions,omitempty"`
	// Fields are the names of the spawned task's fields, initialized unset.
	Fields []string `json:"fields"`
}

// StepDefinition is one named stage of a workflow: the writes it performs and
// the optional chained step. Definitions are read-only reference data owned
// by the definition store.
type StepDefinition struct {
	Name       string      `json:"name"`
	Operations []Operation `json:"operations"`
	NextStep   *NextStep   `json:"next_step,omitempty"`
	// ReportRef optionally points the spawned task at supplementary context.
	ReportRef string `json:"report_url,omitempty"`
}

// WriteResult is the outcome of one table write within a step.
type WriteResult struct {
	Table string         `json:"table"`
	Data  map[string]any `json:"data"`
}

// ChainStatus reports what the chainer decided after a step completed. A
// condition mismatch is a normal outcome, not an error.
type ChainStatus string

const (
	// ChainSpawned means the next-step task was created and enqueued.
	ChainSpawned ChainStatus = "spawned"
	// ChainNoNextStep means the step declares no successor.
	ChainNoNextStep ChainStatus = "no-next-step"
	// ChainConditionsNotMet means a successor exists but its conditions did
	// not hold.
	ChainConditionsNotMet ChainStatus = "conditions-not-met"
)

// StepOutcome is returned by Engine.ExecuteStep.
type StepOutcome struct {
	Results  []WriteResult `json:"results"`
	NextStep ChainStatus   `json:"next_step_status"`
}
