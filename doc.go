// Package swarmflow provides an embeddable task coordination engine for
// form-driven workflows.
//
// Swarmflow moves work between three loops that share one durable queue:
//
//  1. Producers submit tasks, each describing a form to fill and a callback
//     to deliver the result to.
//  2. A Scheduler promotes recurring "starter" tasks into the queue on a
//     cadence.
//  3. Workers reserve tasks one at a time, generate values for unset fields
//     when the task is an AI task, and POST the resolved fields to the
//     task's callback.
//
// Completing a workflow step can spawn the next step's task automatically:
// each step definition may name a successor guarded by conditions over the
// step's database writes.
//
// # Engine
//
// The Engine is the coordination surface: submit tasks, define and execute
// steps, and manage starter schedules. Engines can be backed by different
// storage systems:
//
//   - In-memory (non-durable, best for tests)
//   - SQLite (embedded durability)
//   - Redis (shared queue for multi-process deployments)
//
// # Worker
//
// A Worker polls the queue and executes tasks. Reservation is atomic, so
// workers can be scaled horizontally over a shared Redis or SQLite queue.
// Each worker keeps its reserved tasks in a per-worker in-flight record
// until they reach a terminal state.
//
// # Bundles
//
// NewSQLiteBundle and NewRedisBundle wire an Engine and a Worker over the
// same backing store, which is the typical deployment shape:
//
//	db, _ := sql.Open("sqlite", "file:swarmflow.db?_journal=WAL")
//	bundle, err := swarmflow.NewSQLiteBundle(db, swarmflow.Options{}, worker.Config{})
//	go bundle.Worker.Run(ctx, 2)
//	go bundle.RunScheduler(ctx)
//
// # Tasks
//
// Tasks are built directly or through NewTask:
//
//	task := swarmflow.NewTask("http://app:8000/forms/orders").
//	    Description("Process form orders").
//	    AI().
//	    Field("customer", nil).
//	    Field("total", nil).
//	    Build()
//	err := bundle.Engine.Submit(ctx, task)
package swarmflow
