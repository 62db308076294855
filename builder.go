package swarmflow

import "github.com/swarmflow/swarmflow/pkg/api"

// TaskBuilder provides a fluent API for constructing tasks:
//
//	task := swarmflow.NewTask("http://app:8000/forms/orders").
//	    Description("Process form orders").
//	    AI().
//	    Field("customer", nil).
//	    Field("total", nil).
//	    Build()
//
// Build assigns a fresh id; the zero-value fields of Task keep their
// defaults (human mode, not external, not a starter).
type TaskBuilder struct {
	task api.Task
}

// NewTask creates a builder for a task calling back to the given URL.
func NewTask(callback string) *TaskBuilder {
	return &TaskBuilder{
		task: api.Task{
			Callback: callback,
			Mode:     api.ModeHuman,
		},
	}
}

// Description sets the human-readable task description.
func (b *TaskBuilder) Description(d string) *TaskBuilder {
	b.task.Description = d
	return b
}

// AI marks the task for automatic field generation.
func (b *TaskBuilder) AI() *TaskBuilder {
	b.task.Mode = api.ModeAI
	return b
}

// Human marks the task for human fulfilment. This is the default.
func (b *TaskBuilder) Human() *TaskBuilder {
	b.task.Mode = api.ModeHuman
	return b
}

// External marks the task as fulfilled by an external system.
func (b *TaskBuilder) External() *TaskBuilder {
	b.task.External = true
	return b
}

// Starter marks the task as a schedulable workflow starter template.
func (b *TaskBuilder) Starter() *TaskBuilder {
	b.task.Starter = true
	return b
}

// Report points the task at supplementary context fetched before AI fill.
func (b *TaskBuilder) Report(url string) *TaskBuilder {
	b.task.ReportRef = url
	return b
}

// Field appends a named field. A nil value leaves the field unset.
func (b *TaskBuilder) Field(name string, value any) *TaskBuilder {
	b.task.Fields = append(b.task.Fields, api.Field{Name: name, Value: value})
	return b
}

// Build returns the task with a fresh id. The builder can be reused; each
// Build gets its own id and field slice.
func (b *TaskBuilder) Build() api.Task {
	t := b.task.Clone()
	t.ID = api.NewTaskID()
	return t
}
