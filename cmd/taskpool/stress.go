package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/utkarsh5026/taskpool/pool"
)

var (
	stressTasks       int
	stressWorkers     int
	stressMetricsAddr string
	stressHold        time.Duration
	stressTrace       bool
)

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Increment a shared counter from many tasks and verify the total",
	Long: `stress submits --tasks increments of one lock-protected counter, drains the
pool and checks that every increment happened exactly once. With --metrics-addr
the pool's Prometheus metrics are served while the test runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		extra := workerOption(stressWorkers)

		if stressMetricsAddr != "" {
			appConfig.Metrics.Enabled = true
			stop, addr, err := serveMetrics(stressMetricsAddr)
			if err != nil {
				return err
			}
			defer stop()
			colorPrintf(out, cyan, "metrics: http://%s/metrics\n", addr)
		}

		if stressTrace {
			exporter, err := stdouttrace.New(stdouttrace.WithWriter(cmd.ErrOrStderr()))
			if err != nil {
				return fmt.Errorf("create trace exporter: %w", err)
			}
			tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
			defer func() { _ = tp.Shutdown(context.Background()) }()
			extra = append(extra, pool.WithTracerProvider(tp))
		}

		p, err := newPool(extra...)
		if err != nil {
			return err
		}
		defer p.Close()

		bar := makeProgressBar(cmd.ErrOrStderr(), stressTasks, "incrementing")

		var mu sync.Mutex
		counter := 0
		start := time.Now()
		for range stressTasks {
			_, err := p.Go(func() {
				mu.Lock()
				counter++
				mu.Unlock()
				_ = bar.Add(1)
			})
			if err != nil {
				return err
			}
		}

		if err := p.Shutdown(appConfig.Pool.ShutdownTimeout); err != nil {
			return err
		}
		elapsed := time.Since(start)
		_ = bar.Finish()

		printSectionHeader(out, "STRESS RESULT")
		if err := renderStats(out, p); err != nil {
			return err
		}

		if counter != stressTasks {
			colorPrintf(out, red, "FAIL: counter = %s, expected %s\n", formatNumber(int64(counter)), formatNumber(int64(stressTasks)))
			return fmt.Errorf("lost increments: got %d, want %d", counter, stressTasks)
		}
		colorPrintf(out, green, "PASS: counter = %s in %v\n", formatNumber(int64(counter)), elapsed.Round(time.Millisecond))

		if stressMetricsAddr != "" && stressHold > 0 {
			colorPrintf(out, cyan, "holding the metrics endpoint for %v\n", stressHold)
			time.Sleep(stressHold)
		}
		return nil
	},
}

func init() {
	stressCmd.Flags().IntVarP(&stressTasks, "tasks", "n", 10_000, "number of increments")
	stressCmd.Flags().IntVarP(&stressWorkers, "workers", "w", 4, "number of workers")
	stressCmd.Flags().StringVar(&stressMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	stressCmd.Flags().DurationVar(&stressHold, "hold", 0, "keep the metrics endpoint up this long after the run")
	stressCmd.Flags().BoolVar(&stressTrace, "trace", false, "write one span per task to stderr")
}

// serveMetrics exposes the shared registry on addr. It returns a func that
// stops the server and the address actually bound.
func serveMetrics(addr string) (stop func(), bound string, err error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("metrics server failed", "error", err)
		}
	}()

	stop = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return stop, ln.Addr().String(), nil
}
