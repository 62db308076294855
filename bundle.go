package swarmflow

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"

	enginepkg "github.com/swarmflow/swarmflow/internal/engine"
	"github.com/swarmflow/swarmflow/internal/fill"
	workerpkg "github.com/swarmflow/swarmflow/pkg/worker"
)

// Filler generates values for an AI task's unset fields. NewOpenAIFiller
// builds the production implementation; pass nil when no AI tasks are
// expected.
type Filler = fill.Filler

// FillerConfig tunes the OpenAI-backed filler. The zero value uses the
// default model and generation settings.
type FillerConfig = fill.OpenAIConfig

// NewOpenAIFiller returns a Filler that generates field values with a chat
// completion per task.
func NewOpenAIFiller(apiKey string, cfg FillerConfig) Filler {
	return fill.NewOpenAIFiller(apiKey, cfg)
}

// WorkerBundle wires together an Engine, its durable task queue, and a
// Worker consuming from that queue.
type WorkerBundle struct {
	Engine Engine
	Worker *workerpkg.Worker

	// eng is the concrete engine, kept for the scheduler loop. The public
	// API focuses on Engine and Worker.
	eng *enginepkg.Engine
}

// RunScheduler runs the starter promotion loop until ctx is cancelled.
// Typically started as a goroutine alongside Worker.Run.
func (b *WorkerBundle) RunScheduler(ctx context.Context) {
	b.eng.RunScheduler(ctx)
}

// NewSQLiteBundle constructs a durable Engine + Queue + Worker combo sharing
// the same SQLite database.
//
// Typical usage:
//
//	db, _ := sql.Open("sqlite", "file:swarmflow.db?_journal=WAL")
//	bundle, err := swarmflow.NewSQLiteBundle(db, swarmflow.Options{}, nil, worker.Config{MaxAttempts: 3})
//	go bundle.Worker.Run(ctx, 2)
//	go bundle.RunScheduler(ctx)
func NewSQLiteBundle(db *sql.DB, opts Options, filler Filler, cfg workerpkg.Config) (*WorkerBundle, error) {
	eng, err := enginepkg.NewSQLite(db, opts)
	if err != nil {
		return nil, err
	}
	return newBundle(eng, filler, cfg), nil
}

// NewRedisBundle constructs an Engine + Queue + Worker combo over a shared
// Redis instance, for multi-process deployments. All keys live under prefix.
func NewRedisBundle(client *redis.Client, prefix string, opts Options, filler Filler, cfg workerpkg.Config) *WorkerBundle {
	return newBundle(enginepkg.NewRedis(client, prefix, opts), filler, cfg)
}

// NewInMemoryBundle constructs a non-durable combo, best for tests.
func NewInMemoryBundle(opts Options, filler Filler, cfg workerpkg.Config) *WorkerBundle {
	return newBundle(enginepkg.NewInMemory(opts), filler, cfg)
}

func newBundle(eng *enginepkg.Engine, filler Filler, cfg workerpkg.Config) *WorkerBundle {
	return &WorkerBundle{
		Engine: eng,
		Worker: workerpkg.New(eng.Queue(), filler, cfg, eng.Logger()),
		eng:    eng,
	}
}
