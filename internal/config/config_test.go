package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
redis:
  addr: redis.internal:6380
worker:
  count: 4
  poll_interval: 250ms
  max_attempts: 3
openai:
  model: gpt-4o-mini
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	require.Equal(t, 4, cfg.Worker.Count)
	require.Equal(t, 250*time.Millisecond, cfg.Worker.PollInterval)
	require.Equal(t, 3, cfg.Worker.MaxAttempts)
	require.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	// Untouched sections keep their defaults.
	require.Equal(t, Default().Scheduler.Tick, cfg.Scheduler.Tick)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("redis:\n  addr: from-file:6379\n"), 0o644))
	t.Setenv("SWARMFLOW_REDIS_ADDR", "from-env:6379")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-env:6379", cfg.Redis.Addr)
	require.Equal(t, "sk-test", cfg.OpenAI.APIKey)
}

func TestLoad_RejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("worker:\n  backoff: soon\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("redis: [unclosed"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}
