package swarmflow_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/swarmflow/swarmflow"
	"github.com/swarmflow/swarmflow/internal/fill"
	"github.com/swarmflow/swarmflow/pkg/worker"
)

func quietOptions(callbackBase string) swarmflow.Options {
	return swarmflow.Options{
		CallbackBase: callbackBase,
		Logger:       log.New(io.Discard, "", 0),
	}
}

func TestTaskBuilder(t *testing.T) {
	b := swarmflow.NewTask("http://app:8000/forms/orders").
		Description("Process form orders").
		AI().
		Report("http://app:8000/reports/q3").
		Field("customer", nil).
		Field("total", nil)

	task := b.Build()
	require.NotEmpty(t, task.ID)
	require.Equal(t, swarmflow.ModeAI, task.Mode)
	require.Equal(t, "http://app:8000/reports/q3", task.ReportRef)
	require.True(t, task.Fields.AllUnset())
	require.NoError(t, task.Validate())

	again := b.Build()
	require.NotEqual(t, task.ID, again.ID, "each Build gets its own id")
	again.Fields[0].Value = "acme"
	require.True(t, task.Fields.AllUnset(), "builds do not share field storage")
}

// Submitting a human task, executing its step, and letting the worker fill
// and deliver the chained AI task exercises the whole loop against one
// in-memory bundle.
func TestInMemoryBundle_EndToEnd(t *testing.T) {
	ctx := context.Background()

	var mu sync.Mutex
	deliveries := map[string]map[string]any{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var fields map[string]any
		json.Unmarshal(body, &fields)
		mu.Lock()
		deliveries[r.URL.Path] = fields
		mu.Unlock()
	}))
	defer srv.Close()

	filler := &fill.StaticFiller{Values: map[string]any{"summary": "all good"}}
	bundle := swarmflow.NewInMemoryBundle(quietOptions(srv.URL), filler, worker.Config{})
	eng := bundle.Engine

	require.NoError(t, eng.DefineStep(ctx, swarmflow.StepDefinition{
		Name: "submit_order",
		Operations: []swarmflow.Operation{
			{Table: "orders", Fields: map[string]string{"customer": "text", "total": "real"}},
		},
		NextStep: &swarmflow.NextStep{
			Step:   "summarize_order",
			Form:   "order_summary",
			Type:   swarmflow.ModeAI,
			Fields: []string{"summary"},
			Conditions: swarmflow.Conditions{
				"orders": {"total": swarmflow.Condition{Op: "gt", Value: float64(100)}},
			},
		},
	}))

	// A human submits the order form.
	task := swarmflow.NewTask(srv.URL + "/forms/orders").
		Human().
		Field("customer", "acme").
		Field("total", float64(250)).
		Build()
	require.NoError(t, eng.Submit(ctx, task))

	processed, err := bundle.Worker.ProcessOne(ctx)
	require.NoError(t, err)
	require.True(t, processed)
	mu.Lock()
	require.Equal(t, "acme", deliveries["/forms/orders"]["customer"])
	mu.Unlock()

	// The form endpoint then executes the step, which spawns the AI task.
	outcome, err := eng.ExecuteStep(ctx, "submit_order", map[string]any{
		"customer": "acme",
		"total":    float64(250),
	})
	require.NoError(t, err)
	require.Equal(t, swarmflow.ChainSpawned, outcome.NextStep)

	processed, err = bundle.Worker.ProcessOne(ctx)
	require.NoError(t, err)
	require.True(t, processed)
	mu.Lock()
	require.Equal(t, "all good", deliveries["/forms/order_summary"]["summary"])
	mu.Unlock()
}

// Building a bundle from a settings file covers the whole configuration
// path: YAML load, worker tuning, the database location, and the callback
// base the chainer builds task URLs from.
func TestSQLiteBundleFromConfig(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
	}))
	defer srv.Close()

	doc := fmt.Sprintf(`
sqlite:
  path: %s
worker:
  max_attempts: 2
  poll_interval: 20ms
scheduler:
  tick: 50ms
callback_base: %s
`, filepath.Join(dir, "flow.db"), srv.URL)
	cfgPath := filepath.Join(dir, "swarmflow.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(doc), 0o644))

	cfg, err := swarmflow.LoadConfig(cfgPath)
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Worker.MaxAttempts)
	require.Equal(t, 20*time.Millisecond, cfg.Worker.PollInterval)
	require.Equal(t, srv.URL, cfg.CallbackBase)

	db, err := sql.Open("sqlite", cfg.SQLite.Path)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`CREATE TABLE orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT, customer TEXT, total REAL)`)
	require.NoError(t, err)

	bundle, err := swarmflow.NewSQLiteBundleFromConfig(db, cfg)
	require.NoError(t, err)

	require.NoError(t, bundle.Engine.DefineStep(ctx, swarmflow.StepDefinition{
		Name: "submit_order",
		Operations: []swarmflow.Operation{
			{Table: "orders", Fields: map[string]string{"customer": "text", "total": "real"}},
		},
		NextStep: &swarmflow.NextStep{
			Step:   "review_order",
			Form:   "order_review",
			Type:   swarmflow.ModeHuman,
			Fields: []string{"approved"},
		},
	}))

	outcome, err := bundle.Engine.ExecuteStep(ctx, "submit_order", map[string]any{
		"customer": "acme",
		"total":    float64(250),
	})
	require.NoError(t, err)
	require.Equal(t, swarmflow.ChainSpawned, outcome.NextStep)

	processed, err := bundle.Worker.ProcessOne(ctx)
	require.NoError(t, err)
	require.True(t, processed)

	// The spawned task's callback was built from the file's callback_base.
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"/forms/order_review"}, paths)
}

func TestInMemoryBundle_StarterFlowsThroughWorker(t *testing.T) {
	ctx := context.Background()

	var mu sync.Mutex
	var delivered int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		delivered++
		mu.Unlock()
	}))
	defer srv.Close()

	bundle := swarmflow.NewInMemoryBundle(quietOptions(srv.URL), nil, worker.Config{})

	starter := swarmflow.NewTask(srv.URL + "/forms/report").
		Human().
		Starter().
		Field("note", "weekly").
		Build()
	// FireOnce makes the starter due immediately.
	id, err := bundle.Engine.ScheduleStarter(ctx, starter, swarmflow.UnitMinutes, swarmflow.FireOnce)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	ctx2, cancel := context.WithCancel(ctx)
	defer cancel()
	go bundle.RunScheduler(ctx2)

	require.Eventually(t, func() bool {
		processed, err := bundle.Worker.ProcessOne(ctx)
		return err == nil && processed
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	require.Equal(t, 1, delivered)
	mu.Unlock()

	// The one-shot schedule removes itself after firing.
	require.Eventually(t, func() bool {
		status, err := bundle.Engine.StarterStatus(ctx, id)
		return err == nil && status == nil
	}, 5*time.Second, 10*time.Millisecond)
}
