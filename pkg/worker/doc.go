// Package worker runs the dispatch loop: reserve a task, fill its unset
// fields when it is an AI task, deliver the resolved fields to the task's
// callback, and record the outcome.
package worker
