package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags restores every scalar flag to its default so commands run in one
// test binary do not see each other's arguments.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if _, ok := f.Value.(pflag.SliceValue); ok {
			return
		}
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the root command with args and returns what it wrote to stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommandStructure(t *testing.T) {
	expected := []string{"run", "futures", "threads", "stress", "bench", "resubmit", "config"}

	found := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		found[cmd.Name()] = true
	}
	for _, name := range expected {
		assert.True(t, found[name], "command %q not registered", name)
	}
}

func TestConfigCommand(t *testing.T) {
	t.Run("defaults with overrides", func(t *testing.T) {
		out, err := execute(t, "config", "--log-level", "debug", "--log-format", "json")
		require.NoError(t, err)
		assert.Contains(t, out, "queue: ring")
		assert.Contains(t, out, "level: debug")
		assert.Contains(t, out, "format: json")
	})

	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "taskpool.toml")
		require.NoError(t, os.WriteFile(path, []byte("[pool]\nworkers = 3\nqueue = \"linked\"\n"), 0o644))

		out, err := execute(t, "config", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, out, "workers: 3")
		assert.Contains(t, out, "queue: linked")
	})

	t.Run("invalid override", func(t *testing.T) {
		_, err := execute(t, "config", "--log-level", "loud")
		assert.ErrorContains(t, err, "invalid configuration")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := execute(t, "config", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}

func TestStressCommand(t *testing.T) {
	t.Run("counter matches", func(t *testing.T) {
		out, err := execute(t, "stress", "--tasks", "2000", "--workers", "4")
		require.NoError(t, err)
		assert.Contains(t, out, "PASS: counter = 2,000")
		assert.Contains(t, out, "stopped")
	})

	t.Run("with metrics endpoint", func(t *testing.T) {
		out, err := execute(t, "stress", "--tasks", "100", "--workers", "2", "--metrics-addr", "127.0.0.1:0")
		require.NoError(t, err)
		assert.Contains(t, out, "metrics: http://127.0.0.1:")
		assert.Contains(t, out, "PASS")
	})

	t.Run("with tracing", func(t *testing.T) {
		out, err := execute(t, "stress", "--tasks", "10", "--workers", "2", "--trace")
		require.NoError(t, err)
		assert.Contains(t, out, "PASS")
	})
}

func TestRunCommand(t *testing.T) {
	out, err := execute(t, "run", "--tasks", "3", "--workers", "2", "--delay", "1ms")
	require.NoError(t, err)

	assert.Contains(t, out, "Main thread starts... (2 workers)")
	assert.Contains(t, out, "Main thread ends...")
	for _, line := range []string{"BW#1 is finished...", "BW#2 is finished...", "BW#3 is finished..."} {
		assert.Contains(t, out, line)
	}
}

func TestFuturesCommand(t *testing.T) {
	out, err := execute(t, "futures", "--save-time", "60ms", "--poll", "10ms")
	require.NoError(t, err)

	assert.Contains(t, out, "I'm still waiting for saving a file...")
	assert.Contains(t, out, "File saved: data.txt")
	assert.Contains(t, out, "r1: 121")
	assert.Contains(t, out, "r2: 169")
	assert.Contains(t, out, "r3: square of 21: unlucky number")
	assert.Contains(t, out, "collected: [121 169]")
}

func TestThreadsCommand(t *testing.T) {
	out, err := execute(t, "threads", "--threads", "3")
	require.NoError(t, err)

	assert.Contains(t, out, "after move: source joinable=false, target joinable=true")
	assert.Contains(t, out, "thread #2 done")
	assert.Contains(t, out, "group reported: worker panic: thread failure")
	assert.Contains(t, out, "group joined")
}

func TestResubmitCommand(t *testing.T) {
	t.Run("succeeds after failures", func(t *testing.T) {
		out, err := execute(t, "resubmit", "--failures", "2", "--initial-delay", "1ms", "--backoff", "decorrelated")
		require.NoError(t, err)
		assert.Contains(t, out, "attempt 1 failed")
		assert.Contains(t, out, "attempt 2 failed")
		assert.Contains(t, out, "succeeded on call 3 (decorrelated backoff)")
	})

	t.Run("gives up", func(t *testing.T) {
		out, err := execute(t, "resubmit", "--failures", "10", "--attempts", "2", "--initial-delay", "1ms")
		assert.ErrorIs(t, err, errTransientFailed)
		assert.Contains(t, out, "gave up after 2 attempts")
	})

	t.Run("unknown strategy", func(t *testing.T) {
		_, err := execute(t, "resubmit", "--backoff", "linear")
		assert.ErrorContains(t, err, "unknown backoff strategy")
	})
}

func TestBenchCommand(t *testing.T) {
	out, err := execute(t, "bench", "--tasks", "500", "--workers", "1,2", "--work", "10", "--producers", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "THROUGHPUT COMPARISON")
	assert.Contains(t, out, "ring")
	assert.Contains(t, out, "linked")
	assert.Contains(t, out, "Completed 4/4 runs")
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{10_000, "10,000"},
		{1234567, "1,234,567"},
		{-4200, "-4,200"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatNumber(tt.in))
	}
}
