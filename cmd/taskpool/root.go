package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/utkarsh5026/taskpool/internal/config"
	"github.com/utkarsh5026/taskpool/internal/logger"
	"github.com/utkarsh5026/taskpool/pool"
)

var (
	configPath string
	logLevel   string
	logFormat  string
	logOutput  string

	appConfig *config.Config
	appLogger *logger.Logger
	registry  *prometheus.Registry
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "taskpool",
	Short: "taskpool - fixed-size thread pool with futures",
	Long: `taskpool runs demos, stress tests and benchmarks of a fixed-size thread pool
whose submissions return futures. Pool settings come from a YAML or TOML file
(--config) and can be overridden per command.`,
	Version:            Version,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "path to a .yaml, .yml or .toml config file")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	flags.StringVar(&logFormat, "log-format", "", "log format: json, text (overrides config)")
	flags.StringVar(&logOutput, "log-output", "", "log output: stdout, stderr or a file path (overrides config)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(futuresCmd)
	rootCmd.AddCommand(threadsCmd)
	rootCmd.AddCommand(stressCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(resubmitCmd)
	rootCmd.AddCommand(configCmd)
}

// setup loads the configuration and builds the logger and metrics registry
// shared by every subcommand.
func setup(cmd *cobra.Command, _ []string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	if logOutput != "" {
		cfg.Logging.Output = logOutput
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	appConfig, appLogger, registry = cfg, log, reg
	appLogger.Debug("configuration loaded", "path", configPath, "command", cmd.Name())
	return nil
}

func teardown(*cobra.Command, []string) error {
	if appLogger == nil {
		return nil
	}
	return appLogger.Close()
}

// newPool creates a pool from the loaded configuration. extra options are
// applied last and override the file.
func newPool(extra ...pool.Option) (*pool.ThreadPool, error) {
	var log *slog.Logger
	if appLogger != nil {
		log = appLogger.Logger
	}

	opts, err := appConfig.PoolOptions(log, registry)
	if err != nil {
		return nil, err
	}
	return pool.New(append(opts, extra...)...)
}

// workerOption returns WithWorkerCount(n) when n was set on the command line.
func workerOption(n int) []pool.Option {
	if n > 0 {
		return []pool.Option{pool.WithWorkerCount(n)}
	}
	return nil
}
