package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utkarsh5026/taskpool/pool"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestConfigDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 0, cfg.Pool.Workers)
	assert.Equal(t, "ring", cfg.Pool.Queue)
	require.NotNil(t, cfg.Pool.ThreadLocking)
	assert.True(t, *cfg.Pool.ThreadLocking)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
	assert.Equal(t, "taskpool", cfg.Metrics.Namespace)
	assert.Empty(t, cfg.Validate())
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "taskpool.yaml", `
pool:
  workers: 4
  queue: linked
  thread_locking: false
  cpu_affinity: true
  rate_limit:
    tasks_per_second: 50
  shutdown_timeout: 3s
logging:
  level: debug
  format: json
metrics:
  enabled: true
  addr: 127.0.0.1:9100
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Pool.Workers)
	assert.Equal(t, "linked", cfg.Pool.Queue)
	require.NotNil(t, cfg.Pool.ThreadLocking)
	assert.False(t, *cfg.Pool.ThreadLocking)
	assert.True(t, cfg.Pool.CPUAffinity)
	assert.Equal(t, 50.0, cfg.Pool.RateLimit.TasksPerSecond)
	assert.Equal(t, 1, cfg.Pool.RateLimit.Burst, "burst defaults to 1 when a rate is set")
	assert.Equal(t, 3*time.Second, cfg.Pool.ShutdownTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Addr)
	assert.Empty(t, cfg.Validate())
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "taskpool.toml", `
[pool]
workers = 2
queue = "ring"
shutdown_timeout = "500ms"

[pool.rate_limit]
tasks_per_second = 10.0
burst = 5

[logging]
level = "warn"
output = "stdout"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Pool.Workers)
	assert.Equal(t, "ring", cfg.Pool.Queue)
	assert.Equal(t, 500*time.Millisecond, cfg.Pool.ShutdownTimeout)
	assert.Equal(t, 10.0, cfg.Pool.RateLimit.TasksPerSecond)
	assert.Equal(t, 5, cfg.Pool.RateLimit.Burst)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Empty(t, cfg.Validate())
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorContains(t, err, "failed to read config file")
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := Load(writeFile(t, "taskpool.json", `{}`))
		assert.ErrorContains(t, err, "unsupported config format")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeFile(t, "bad.yml", "pool: [unterminated"))
		assert.ErrorContains(t, err, "failed to parse config file")
	})

	t.Run("malformed toml", func(t *testing.T) {
		_, err := Load(writeFile(t, "bad.toml", "[pool\nworkers ="))
		assert.ErrorContains(t, err, "failed to parse config file")
	})
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr int
	}{
		{"valid", func(c *Config) {}, 0},
		{"negative workers", func(c *Config) { c.Pool.Workers = -1 }, 1},
		{"unknown queue", func(c *Config) { c.Pool.Queue = "stack" }, 1},
		{"negative rate", func(c *Config) { c.Pool.RateLimit.TasksPerSecond = -1 }, 1},
		{"negative timeout", func(c *Config) { c.Pool.ShutdownTimeout = -time.Second }, 1},
		{"bad level and format", func(c *Config) {
			c.Logging.Level = "verbose"
			c.Logging.Format = "xml"
		}, 2},
		{"metrics without addr", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Addr = ""
		}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Len(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestPoolOptions(t *testing.T) {
	cfg := Default()
	cfg.Pool.Workers = 3
	cfg.Pool.Queue = "linked"
	cfg.Metrics.Enabled = true

	reg := prometheus.NewRegistry()
	opts, err := cfg.PoolOptions(nil, reg)
	require.NoError(t, err)

	p, err := pool.New(opts...)
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, 3, p.Workers())

	f, err := pool.SubmitValue(p, func() int { return 9 })
	require.NoError(t, err)
	v, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, 9, v)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families, "metrics should be registered when enabled")

	cfg.Pool.Queue = "deque"
	_, err = cfg.PoolOptions(nil, nil)
	assert.Error(t, err)
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("TASKPOOL_TEST_ADDR", ":9999")

	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"${TASKPOOL_TEST_ADDR}", ":9999"},
		{"${TASKPOOL_TEST_ADDR:default}", ":9999"},
		{"${TASKPOOL_TEST_UNSET:fallback}", "fallback"},
		{"${TASKPOOL_TEST_UNSET}", ""},
		{"${unterminated", "${unterminated"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, expandEnv(tt.in), "expandEnv(%q)", tt.in)
	}
}
