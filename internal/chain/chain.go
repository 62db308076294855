// Package chain decides, after a step's writes commit, whether the next step
// of the workflow should run, and spawns its task when it should.
package chain

import (
	"context"
	"log"
	"strings"

	"github.com/swarmflow/swarmflow/internal/taskqueue"
	"github.com/swarmflow/swarmflow/pkg/api"
)

// Evaluate checks a step's write results against next-step conditions. Every
// table named in conds must be present in the results and all of its
// field comparisons must hold; tables not mentioned are not checked. Empty
// conditions always evaluate true.
func Evaluate(results []api.WriteResult, conds api.Conditions) bool {
	if len(conds) == 0 {
		return true
	}
	byTable := make(map[string]map[string]any, len(results))
	for _, r := range results {
		byTable[r.Table] = r.Data
	}
	for table, fields := range conds {
		data, ok := byTable[table]
		if !ok {
			return false
		}
		for field, cond := range fields {
			actual, ok := data[field]
			if !ok {
				return false
			}
			if !cond.Matches(actual) {
				return false
			}
		}
	}
	return true
}

// Chainer constructs and enqueues next-step tasks.
type Chainer struct {
	queue        taskqueue.Queue
	callbackBase string
	logger       *log.Logger
}

// New creates a Chainer. callbackBase is the URL prefix of the form endpoints
// the spawned tasks call back into (e.g. "http://app:8000").
func New(queue taskqueue.Queue, callbackBase string, logger *log.Logger) *Chainer {
	if logger == nil {
		logger = log.Default()
	}
	return &Chainer{
		queue:        queue,
		callbackBase: strings.TrimRight(callbackBase, "/"),
		logger:       logger,
	}
}

// CallbackFor derives a spawned task's callback target from a form name.
func (c *Chainer) CallbackFor(form string) string {
	return c.callbackBase + "/forms/" + form
}

// Next builds the task for def's next step if the step's conditions hold over
// results. It returns (nil, ChainNoNextStep) when the step has no successor
// and (nil, ChainConditionsNotMet) when the conditions fail; neither is an
// error.
func (c *Chainer) Next(def *api.StepDefinition, results []api.WriteResult) (*api.Task, api.ChainStatus) {
	ns := def.NextStep
	if ns == nil {
		return nil, api.ChainNoNextStep
	}
	if !Evaluate(results, ns.Conditions) {
		return nil, api.ChainConditionsNotMet
	}

	mode := ns.Type
	if mode == "" {
		mode = api.ModeAI
	}
	fields := make(api.Fields, len(ns.Fields))
	for i, name := range ns.Fields {
		fields[i] = api.Field{Name: name}
	}
	t := api.Task{
		ID:          api.NewTaskID(),
		Description: "Process form " + ns.Form,
		Callback:    c.CallbackFor(ns.Form),
		Fields:      fields,
		Mode:        mode,
		External:    ns.External,
		ReportRef:   def.ReportRef,
	}
	return &t, api.ChainSpawned
}

// Run evaluates def's next step against results and enqueues the spawned
// task, if any. The returned status tells the caller what was decided; a
// condition mismatch is reported through it, not through the error.
func (c *Chainer) Run(ctx context.Context, def *api.StepDefinition, results []api.WriteResult) (api.ChainStatus, error) {
	t, status := c.Next(def, results)
	if status != api.ChainSpawned {
		return status, nil
	}
	if err := c.queue.Enqueue(ctx, *t); err != nil {
		return status, err
	}
	c.logger.Printf("[chain] step %s spawned %s (%s)", def.Name, def.NextStep.Step, t.ID)
	return status, nil
}
