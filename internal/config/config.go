// Package config loads deployment settings from a YAML file with
// environment overrides for the values that carry credentials or differ per
// host.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level settings document.
type Config struct {
	Redis     RedisConfig     `yaml:"redis"`
	SQLite    SQLiteConfig    `yaml:"sqlite"`
	Worker    WorkerConfig    `yaml:"worker"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	// CallbackBase is the URL prefix chained form callbacks are built from.
	CallbackBase string `yaml:"callback_base"`
}

type RedisConfig struct {
	Addr   string `yaml:"addr"`
	Prefix string `yaml:"prefix"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type WorkerConfig struct {
	Count           int           `yaml:"count"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	MaxAttempts     int           `yaml:"max_attempts"`
	Backoff         time.Duration `yaml:"backoff"`
	FillTimeout     time.Duration `yaml:"fill_timeout"`
	CallbackTimeout time.Duration `yaml:"callback_timeout"`
}

// Durations in the file are Go duration strings ("250ms", "1s"). Absent
// keys keep whatever value the struct already holds, so files only need the
// settings they change.
func (c *WorkerConfig) UnmarshalYAML(n *yaml.Node) error {
	var raw struct {
		Count           int    `yaml:"count"`
		PollInterval    string `yaml:"poll_interval"`
		MaxAttempts     int    `yaml:"max_attempts"`
		Backoff         string `yaml:"backoff"`
		FillTimeout     string `yaml:"fill_timeout"`
		CallbackTimeout string `yaml:"callback_timeout"`
	}
	if err := n.Decode(&raw); err != nil {
		return err
	}
	if raw.Count != 0 {
		c.Count = raw.Count
	}
	if raw.MaxAttempts != 0 {
		c.MaxAttempts = raw.MaxAttempts
	}
	for _, d := range []struct {
		dst *time.Duration
		s   string
	}{
		{&c.PollInterval, raw.PollInterval},
		{&c.Backoff, raw.Backoff},
		{&c.FillTimeout, raw.FillTimeout},
		{&c.CallbackTimeout, raw.CallbackTimeout},
	} {
		if err := parseDuration(d.dst, d.s); err != nil {
			return err
		}
	}
	return nil
}

type SchedulerConfig struct {
	Tick time.Duration `yaml:"tick"`
}

func (c *SchedulerConfig) UnmarshalYAML(n *yaml.Node) error {
	var raw struct {
		Tick string `yaml:"tick"`
	}
	if err := n.Decode(&raw); err != nil {
		return err
	}
	return parseDuration(&c.Tick, raw.Tick)
}

func parseDuration(dst *time.Duration, s string) error {
	if s == "" {
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*dst = v
	return nil
}

type OpenAIConfig struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	TopP        float64 `yaml:"top_p"`
}

// Default returns the settings a fresh deployment runs with.
func Default() Config {
	return Config{
		Redis:  RedisConfig{Addr: "localhost:6379", Prefix: "swarmflow:"},
		SQLite: SQLiteConfig{Path: "swarmflow.db"},
		Worker: WorkerConfig{
			Count:           1,
			PollInterval:    time.Second,
			MaxAttempts:     1,
			Backoff:         time.Second,
			FillTimeout:     30 * time.Second,
			CallbackTimeout: 10 * time.Second,
		},
		Scheduler: SchedulerConfig{Tick: time.Second},
		OpenAI: OpenAIConfig{
			Model:       "gpt-4o",
			Temperature: 0.5,
			TopP:        0.01,
		},
	}
}

// Load reads the file at path over the defaults. A missing file is not an
// error; environment overrides apply either way.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if addr := os.Getenv("SWARMFLOW_REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.OpenAI.APIKey = key
	}
}
