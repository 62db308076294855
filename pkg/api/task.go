package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// Mode selects how unset task fields are resolved.
type Mode string

const (
	// ModeHuman leaves unset fields for an external party to supply.
	ModeHuman Mode = "human"
	// ModeAI resolves unset fields through the automated fill before the
	// callback is invoked.
	ModeAI Mode = "ai"
)

// Field is a single named slot in a task. Value is nil while the field is
// unset; once set it holds a string or a float64.
type Field struct {
	Name  string
	Value any
}

// Unset reports whether the field has no value yet.
func (f Field) Unset() bool { return f.Value == nil }

// Fields is an ordered collection of task fields. The set of names is fixed
// at task creation; only values transition from unset to set.
type Fields []Field

// Get returns the value for name and whether the name exists.
func (fs Fields) Get(name string) (any, bool) {
	for _, f := range fs {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// AllUnset reports whether every field is missing a value. A task in ModeAI
// is eligible for automated fill only in this state.
func (fs Fields) AllUnset() bool {
	for _, f := range fs {
		if !f.Unset() {
			return false
		}
	}
	return true
}

// Set assigns values to unset fields. Unknown names and already-set fields
// are rejected so a task's field set stays fixed after creation.
func (fs Fields) Set(values map[string]any) error {
	for name := range values {
		if _, ok := fs.Get(name); !ok {
			return fmt.Errorf("%w: unknown field %q", ErrValidation, name)
		}
	}
	for i, f := range fs {
		v, ok := values[f.Name]
		if !ok {
			continue
		}
		if !f.Unset() {
			return fmt.Errorf("%w: field %q already set", ErrValidation, f.Name)
		}
		norm, err := normalizeScalar(v)
		if err != nil {
			return fmt.Errorf("%w: field %q: %v", ErrValidation, f.Name, err)
		}
		fs[i].Value = norm
	}
	return nil
}

// Resolved returns the current name/value mapping. Unset fields appear with
// a nil value.
func (fs Fields) Resolved() map[string]any {
	out := make(map[string]any, len(fs))
	for _, f := range fs {
		out[f.Name] = f.Value
	}
	return out
}

// MarshalJSON encodes the fields as a JSON object whose keys appear in field
// order.
func (fs Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into fields, preserving the key order
// of the document.
func (fs *Fields) UnmarshalJSON(data []byte) error {
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		if res.Type == gjson.Null {
			*fs = nil
			return nil
		}
		return fmt.Errorf("fields: expected JSON object, got %s", res.Type)
	}
	out := make(Fields, 0, 8)
	var iterErr error
	res.ForEach(func(key, value gjson.Result) bool {
		var v any
		switch value.Type {
		case gjson.Null:
			v = nil
		case gjson.String:
			v = value.String()
		case gjson.Number:
			v = value.Float()
		case gjson.True, gjson.False:
			v = value.Bool()
		default:
			iterErr = fmt.Errorf("fields: %q has non-scalar value", key.String())
			return false
		}
		out = append(out, Field{Name: key.String(), Value: v})
		return true
	})
	if iterErr != nil {
		return iterErr
	}
	*fs = out
	return nil
}

// Task is the unit of work handed between producers and workers. It is
// immutable once created; stores mutate it only by replacement.
type Task struct {
	// ID is an opaque unique identifier assigned at creation.
	ID string `json:"id"`
	// Description is a human-readable summary of the work.
	Description string `json:"description"`
	// Callback is the URL or endpoint name invoked with the resolved fields.
	Callback string `json:"callback_url"`
	// Fields holds the named slots to resolve, in declaration order.
	Fields Fields `json:"fields"`
	// Mode selects whether unset fields are auto-filled.
	Mode Mode `json:"type"`
	// External marks tasks fulfilled outside the engine's own workers.
	External bool `json:"external"`
	// Starter marks a template for recurring regeneration rather than a
	// one-shot unit.
	Starter bool `json:"starter"`
	// ReportRef optionally points at read-only context data fetched before
	// an automated fill.
	ReportRef string `json:"report_url,omitempty"`
}

// NewTaskID returns a fresh opaque task identifier.
func NewTaskID() string { return uuid.NewString() }

// Validate checks the task for structural problems. Invalid tasks are
// rejected before enqueue and never stored.
func (t *Task) Validate() error {
	if t.Callback == "" {
		return fmt.Errorf("%w: task has no callback target", ErrValidation)
	}
	switch t.Mode {
	case ModeHuman, ModeAI, "":
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrValidation, t.Mode)
	}
	seen := make(map[string]struct{}, len(t.Fields))
	for _, f := range t.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: empty field name", ErrValidation)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: duplicate field %q", ErrValidation, f.Name)
		}
		seen[f.Name] = struct{}{}
		if f.Value == nil {
			continue
		}
		if _, err := normalizeScalar(f.Value); err != nil {
			return fmt.Errorf("%w: field %q: %v", ErrValidation, f.Name, err)
		}
	}
	return nil
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() Task {
	out := *t
	out.Fields = make(Fields, len(t.Fields))
	copy(out.Fields, t.Fields)
	return out
}

// Materialize derives a fresh one-shot Task from a starter template. The
// copy gets a new ID and drops the starter flag so it is executed, not
// rescheduled.
func (t *Task) Materialize() Task {
	out := t.Clone()
	out.ID = NewTaskID()
	out.Starter = false
	return out
}

// normalizeScalar coerces a value into the wire scalar set: string or
// float64. Integers are widened; anything else is rejected.
func normalizeScalar(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case bool:
		return x, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}
