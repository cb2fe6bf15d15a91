// Package config loads taskpool settings from YAML or TOML files and turns them
// into pool options.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/utkarsh5026/taskpool/internal/logger"
	"github.com/utkarsh5026/taskpool/pool"
)

// Config is the root of a taskpool configuration file.
type Config struct {
	Pool    PoolConfig    `yaml:"pool" toml:"pool"`
	Logging logger.Config `yaml:"logging" toml:"logging"`
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics"`
}

// PoolConfig mirrors the pool's functional options.
type PoolConfig struct {
	Workers         int             `yaml:"workers" toml:"workers"` // 0 means GOMAXPROCS
	Queue           string          `yaml:"queue" toml:"queue"`     // ring, linked
	ThreadLocking   *bool           `yaml:"thread_locking" toml:"thread_locking"`
	CPUAffinity     bool            `yaml:"cpu_affinity" toml:"cpu_affinity"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// RateLimitConfig enables pool.WithRateLimit when TasksPerSecond is positive.
type RateLimitConfig struct {
	TasksPerSecond float64 `yaml:"tasks_per_second" toml:"tasks_per_second"`
	Burst          int     `yaml:"burst" toml:"burst"`
}

// MetricsConfig controls the Prometheus endpoint served by the CLI.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Addr      string `yaml:"addr" toml:"addr"`
	Namespace string `yaml:"namespace" toml:"namespace"`
}

// Load reads the file at path, decoding it as YAML or TOML by extension, and
// applies defaults. The result is not validated; call Validate.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q (expected .yaml, .yml or .toml)", ext)
	}

	applyDefaults(&cfg)
	expandEnvVars(&cfg)
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(c *Config) {
	if c.Pool.Queue == "" {
		c.Pool.Queue = pool.QueueRing.String()
	}
	if c.Pool.ThreadLocking == nil {
		locking := true
		c.Pool.ThreadLocking = &locking
	}
	if c.Pool.RateLimit.TasksPerSecond > 0 && c.Pool.RateLimit.Burst == 0 {
		c.Pool.RateLimit.Burst = 1
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stderr"
	}

	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "taskpool"
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() []error {
	var errs []error

	if c.Pool.Workers < 0 {
		errs = append(errs, fmt.Errorf("pool.workers must not be negative, got %d", c.Pool.Workers))
	}
	if _, err := parseQueue(c.Pool.Queue); err != nil {
		errs = append(errs, err)
	}
	if c.Pool.RateLimit.TasksPerSecond < 0 {
		errs = append(errs, fmt.Errorf("pool.rate_limit.tasks_per_second must not be negative"))
	}
	if c.Pool.RateLimit.Burst < 0 {
		errs = append(errs, fmt.Errorf("pool.rate_limit.burst must not be negative"))
	}
	if c.Pool.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("pool.shutdown_timeout must not be negative"))
	}

	if _, ok := logger.ParseLevel(c.Logging.Level); !ok {
		errs = append(errs, fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format))
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, fmt.Errorf("metrics.addr is required when metrics are enabled"))
	}

	return errs
}

// PoolOptions converts the pool section into pool options. log and reg may be
// nil; reg is only used when metrics are enabled.
func (c *Config) PoolOptions(log *slog.Logger, reg prometheus.Registerer) ([]pool.Option, error) {
	strategy, err := parseQueue(c.Pool.Queue)
	if err != nil {
		return nil, err
	}

	opts := []pool.Option{pool.WithQueueStrategy(strategy)}
	if c.Pool.Workers > 0 {
		opts = append(opts, pool.WithWorkerCount(c.Pool.Workers))
	}
	if c.Pool.ThreadLocking != nil {
		opts = append(opts, pool.WithThreadLocking(*c.Pool.ThreadLocking))
	}
	if c.Pool.CPUAffinity {
		opts = append(opts, pool.WithCPUAffinity())
	}
	if rl := c.Pool.RateLimit; rl.TasksPerSecond > 0 {
		opts = append(opts, pool.WithRateLimit(rl.TasksPerSecond, rl.Burst))
	}
	if log != nil {
		opts = append(opts, pool.WithLogger(log))
	}
	if c.Metrics.Enabled && reg != nil {
		opts = append(opts, pool.WithMetrics(reg, c.Metrics.Namespace))
	}
	return opts, nil
}

func parseQueue(name string) (pool.QueueStrategy, error) {
	switch strings.ToLower(name) {
	case pool.QueueRing.String():
		return pool.QueueRing, nil
	case pool.QueueLinked.String():
		return pool.QueueLinked, nil
	default:
		return pool.QueueRing, fmt.Errorf("pool.queue must be ring or linked, got %q", name)
	}
}

// expandEnvVars expands ${VAR} and ${VAR:default} in string settings.
func expandEnvVars(c *Config) {
	c.Logging.Output = expandEnv(c.Logging.Output)
	c.Metrics.Addr = expandEnv(c.Metrics.Addr)
	c.Metrics.Namespace = expandEnv(c.Metrics.Namespace)
}

// expandEnv expands a value of the form ${VAR:default}.
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") || !strings.HasSuffix(s, "}") {
		return s
	}

	content := s[2 : len(s)-1]
	if key, defaultVal, ok := strings.Cut(content, ":"); ok {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return defaultVal
	}
	return os.Getenv(content)
}
