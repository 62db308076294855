// Package api contains the core building blocks of the swarmflow engine:
// the task data model, schedule entries for recurring starter tasks, workflow
// step definitions with next-step conditions, and the shared error taxonomy.
//
// Most users interact with the higher-level swarmflow package, which
// re-exports selected types and provides engine constructors. The api package
// is intended for custom integrations, alternative store implementations, and
// contributors extending the engine itself.
//
// # Tasks
//
// A Task is the unit of work handed between producers and workers. Its field
// set is fixed at creation; only field values transition from unset to set.
// Tasks whose Mode is ModeAI and whose fields are all unset are completed by
// an automated fill before the callback is invoked.
//
// # Starter tasks and schedules
//
// A Task with Starter set is a template, not a one-shot unit. A ScheduleEntry
// pairs such a template with a firing interval; the scheduler re-materializes
// a fresh Task from the template on every firing.
//
// # Steps and chaining
//
// A StepDefinition describes one named stage of a workflow: the relational
// writes it performs and, optionally, the next step to spawn. Conditions on
// the next step are tagged comparison data (equals, greater-than, less-than,
// in-set), never executable code.
package api
