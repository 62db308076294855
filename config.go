package swarmflow

import (
	"database/sql"

	"github.com/redis/go-redis/v9"

	"github.com/swarmflow/swarmflow/internal/config"
	"github.com/swarmflow/swarmflow/internal/scheduler"
	workerpkg "github.com/swarmflow/swarmflow/pkg/worker"
)

// Config holds deployment settings, loaded from YAML with environment
// overrides. See LoadConfig.
type Config = config.Config

// DefaultConfig returns the settings a fresh deployment runs with.
func DefaultConfig() Config {
	return config.Default()
}

// LoadConfig reads the YAML file at path over the defaults. A missing file
// is not an error. SWARMFLOW_REDIS_ADDR and OPENAI_API_KEY override their
// file counterparts.
func LoadConfig(path string) (Config, error) {
	return config.Load(path)
}

// NewSQLiteBundleFromConfig builds a SQLite-backed bundle from deployment
// settings. db is opened by the caller, typically from cfg.SQLite.Path.
func NewSQLiteBundleFromConfig(db *sql.DB, cfg Config) (*WorkerBundle, error) {
	return NewSQLiteBundle(db, optionsFromConfig(cfg), fillerFromConfig(cfg), workerConfigFromConfig(cfg))
}

// NewRedisBundleFromConfig builds a Redis-backed bundle from deployment
// settings, dialing cfg.Redis.Addr.
func NewRedisBundleFromConfig(cfg Config) *WorkerBundle {
	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	return NewRedisBundle(client, cfg.Redis.Prefix, optionsFromConfig(cfg), fillerFromConfig(cfg), workerConfigFromConfig(cfg))
}

// NewInMemoryBundleFromConfig builds a non-durable bundle from deployment
// settings. The Redis and SQLite sections are ignored.
func NewInMemoryBundleFromConfig(cfg Config) *WorkerBundle {
	return NewInMemoryBundle(optionsFromConfig(cfg), fillerFromConfig(cfg), workerConfigFromConfig(cfg))
}

func optionsFromConfig(cfg Config) Options {
	return Options{
		CallbackBase: cfg.CallbackBase,
		Scheduler:    scheduler.Config{Tick: cfg.Scheduler.Tick},
	}
}

// fillerFromConfig returns nil when no API key is configured; AI tasks then
// dead-letter instead of hanging on a client that cannot authenticate.
func fillerFromConfig(cfg Config) Filler {
	if cfg.OpenAI.APIKey == "" {
		return nil
	}
	return NewOpenAIFiller(cfg.OpenAI.APIKey, FillerConfig{
		Model:       cfg.OpenAI.Model,
		Temperature: cfg.OpenAI.Temperature,
		TopP:        cfg.OpenAI.TopP,
	})
}

func workerConfigFromConfig(cfg Config) workerpkg.Config {
	return workerpkg.Config{
		PollInterval:    cfg.Worker.PollInterval,
		MaxAttempts:     cfg.Worker.MaxAttempts,
		Backoff:         cfg.Worker.Backoff,
		FillTimeout:     cfg.Worker.FillTimeout,
		CallbackTimeout: cfg.Worker.CallbackTimeout,
	}
}
