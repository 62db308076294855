package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/swarmflow/swarmflow/internal/fill"
	"github.com/swarmflow/swarmflow/internal/taskqueue"
	"github.com/swarmflow/swarmflow/pkg/api"
)

// Config tunes a Worker. The zero value is usable.
type Config struct {
	// PollInterval is how long a loop sleeps after finding the queue empty.
	PollInterval time.Duration
	// MaxAttempts bounds callback delivery attempts per task.
	// <= 0 is treated as 1 (no retries).
	MaxAttempts int
	// Backoff is the constant delay between delivery attempts.
	Backoff time.Duration
	// FillTimeout bounds one field generation call.
	FillTimeout time.Duration
	// CallbackTimeout bounds one callback POST.
	CallbackTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.FillTimeout <= 0 {
		c.FillTimeout = 30 * time.Second
	}
	if c.CallbackTimeout <= 0 {
		c.CallbackTimeout = 10 * time.Second
	}
	return c
}

// Worker pulls tasks from a Queue and executes them: AI tasks get their
// fields generated first, then the resolved fields are POSTed to the task's
// callback.
//
// Each Worker owns a distinct in-flight record keyed by its id, so several
// Workers may share one queue.
type Worker struct {
	id     string
	queue  taskqueue.Queue
	filler fill.Filler
	client *http.Client
	cfg    Config
	logger *log.Logger
}

// New creates a Worker with a fresh id. filler may be nil when no AI tasks
// are expected; such tasks are then abandoned to the dead-letter record.
func New(queue taskqueue.Queue, filler fill.Filler, cfg Config, logger *log.Logger) *Worker {
	if logger == nil {
		logger = log.Default()
	}
	return &Worker{
		id:     uuid.NewString(),
		queue:  queue,
		filler: filler,
		client: &http.Client{},
		cfg:    cfg.withDefaults(),
		logger: logger,
	}
}

// ID returns the worker's in-flight record key.
func (w *Worker) ID() string { return w.id }

// ProcessOne reserves and executes a single task.
// Returns (processed, error):
//   - processed == false, err == nil: queue was empty.
//   - processed == true: a task was reserved and driven to a terminal state;
//     err reports an abandoned execution.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	task, err := w.queue.Reserve(ctx, w.id)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}
	return true, w.execute(ctx, task)
}

// execute drives a reserved task to a terminal state. The task is always
// Acked: success lands in the finished record, any abandonment in the
// dead-letter record.
func (w *Worker) execute(ctx context.Context, task *api.Task) error {
	// A reserved task runs to a terminal state even when the pool is
	// shutting down; FillTimeout and CallbackTimeout still bound each call.
	ctx = context.WithoutCancel(ctx)
	err := w.run(ctx, task)
	if err != nil {
		w.logger.Printf("[worker %s] task %s abandoned: %v", w.id, task.ID, err)
		if pushErr := w.queue.PushDead(ctx, *task); pushErr != nil {
			w.logger.Printf("[worker %s] dead-letter push for %s failed: %v", w.id, task.ID, pushErr)
		}
	} else {
		if pushErr := w.queue.PushFinished(ctx, *task); pushErr != nil {
			w.logger.Printf("[worker %s] finished push for %s failed: %v", w.id, task.ID, pushErr)
		}
	}
	if ackErr := w.queue.Ack(ctx, w.id, task.ID); ackErr != nil {
		w.logger.Printf("[worker %s] ack for %s failed: %v", w.id, task.ID, ackErr)
		if err == nil {
			err = ackErr
		}
	}
	return err
}

func (w *Worker) run(ctx context.Context, task *api.Task) error {
	if task.Mode == api.ModeAI && task.Fields.AllUnset() && len(task.Fields) > 0 {
		if err := w.fillFields(ctx, task); err != nil {
			return err
		}
	}
	return w.deliver(ctx, task)
}

func (w *Worker) fillFields(ctx context.Context, task *api.Task) error {
	if w.filler == nil {
		return fmt.Errorf("%w: no filler configured", api.ErrFillFailure)
	}
	var report string
	if task.ReportRef != "" {
		body, err := fill.FetchReport(ctx, w.client, task.ReportRef)
		if err != nil {
			// The report is supplementary; generation proceeds without it.
			w.logger.Printf("[worker %s] report fetch for %s failed: %v", w.id, task.ID, err)
		} else {
			report = body
		}
	}

	fillCtx, cancel := context.WithTimeout(ctx, w.cfg.FillTimeout)
	defer cancel()
	values, err := w.filler.Fill(fillCtx, task.Fields, report)
	if err != nil {
		if errors.Is(err, api.ErrFillFailure) {
			return err
		}
		return fmt.Errorf("%w: %v", api.ErrFillFailure, err)
	}
	if err := task.Fields.Set(values); err != nil {
		return fmt.Errorf("%w: %v", api.ErrFillFailure, err)
	}
	return nil
}

// deliver POSTs the task's resolved fields to its callback, retrying up to
// MaxAttempts.
func (w *Worker) deliver(ctx context.Context, task *api.Task) error {
	var lastErr error
	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		if attempt > 1 && w.cfg.Backoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.cfg.Backoff):
			}
		}
		lastErr = w.post(ctx, task)
		if lastErr == nil {
			return nil
		}
		w.logger.Printf("[worker %s] callback for %s attempt %d/%d failed: %v",
			w.id, task.ID, attempt, w.cfg.MaxAttempts, lastErr)
	}
	return lastErr
}

func (w *Worker) post(ctx context.Context, task *api.Task) error {
	body, err := json.Marshal(task.Fields)
	if err != nil {
		return err
	}
	postCtx, cancel := context.WithTimeout(ctx, w.cfg.CallbackTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(postCtx, http.MethodPost, task.Callback, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", api.ErrCallbackFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", api.ErrCallbackFailure, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: callback returned %s", api.ErrCallbackFailure, resp.Status)
	}
	return nil
}

// Run processes tasks with n concurrent loops until ctx is cancelled. On
// shutdown the loops stop reserving, in-progress executions finish, and the
// worker's in-flight record is cleared.
func (w *Worker) Run(ctx context.Context, n int) {
	if n <= 0 {
		n = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}
	wg.Wait()

	// Executions that were in flight at cancellation already reached a
	// terminal state above; only abandoned reservations remain.
	cleanup, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.queue.ClearInFlight(cleanup, w.id); err != nil {
		w.logger.Printf("[worker %s] in-flight cleanup failed: %v", w.id, err)
	}
}

func (w *Worker) loop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		processed, err := w.ProcessOne(ctx)
		if err != nil && !processed {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			w.logger.Printf("[worker %s] reserve failed: %v", w.id, err)
		}
		if processed {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.cfg.PollInterval):
		}
	}
}
