package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/utkarsh5026/taskpool/pool"
)

var (
	benchTasks     int
	benchWorkers   []int
	benchProducers int
	benchWork      int
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Compare queue strategies across worker counts",
	Long: `bench pushes --tasks CPU-bound tasks from --producers concurrent submitters
into pools of every requested size, once per queue strategy, and ranks the runs
by total time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		strategies := []pool.QueueStrategy{pool.QueueRing, pool.QueueLinked}

		total := len(strategies) * len(benchWorkers)
		colorPrintln(cmd.ErrOrStderr(), bold, "Running Benchmarks...")
		bar := makeProgressBar(cmd.ErrOrStderr(), total, "Testing strategies")

		results := make([]benchResult, 0, total)
		for _, s := range strategies {
			for _, w := range benchWorkers {
				r := runBench(cmd.Context(), s, w)
				results = append(results, r)
				_ = bar.Add(1)
			}
		}
		_ = bar.Finish()

		return renderBench(out, results)
	},
}

func init() {
	benchCmd.Flags().IntVarP(&benchTasks, "tasks", "n", 100_000, "tasks per run")
	benchCmd.Flags().IntSliceVarP(&benchWorkers, "workers", "w", []int{1, 2, 4, 8}, "worker counts to compare")
	benchCmd.Flags().IntVarP(&benchProducers, "producers", "p", 4, "concurrent submitters")
	benchCmd.Flags().IntVar(&benchWork, "work", 1_000, "loop iterations per task")
}

type benchResult struct {
	strategy pool.QueueStrategy
	workers  int
	elapsed  time.Duration
	err      error
}

func (r benchResult) throughput() float64 {
	if r.elapsed <= 0 {
		return 0
	}
	return float64(benchTasks) / r.elapsed.Seconds()
}

// runBench measures the time from the first submission until the pool has
// drained every task.
func runBench(ctx context.Context, s pool.QueueStrategy, workers int) benchResult {
	res := benchResult{strategy: s, workers: workers}

	p, err := newPool(pool.WithWorkerCount(workers), pool.WithQueueStrategy(s))
	if err != nil {
		res.err = err
		return res
	}

	producers := max(benchProducers, 1)
	perProducer := benchTasks / producers

	start := time.Now()
	g, _ := errgroup.WithContext(ctx)
	for i := range producers {
		n := perProducer
		if i == producers-1 {
			n = benchTasks - perProducer*(producers-1)
		}
		g.Go(func() error {
			for range n {
				if _, err := pool.SubmitValue(p, func() int { return spin(benchWork) }); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		res.err = err
		_ = p.Close()
		return res
	}
	if err := p.Close(); err != nil {
		res.err = err
		return res
	}
	res.elapsed = time.Since(start)
	return res
}

// spin is a small CPU-bound workload.
func spin(n int) int {
	acc := 0
	for i := range n {
		acc += i * i % 7
	}
	return acc
}

func renderBench(w io.Writer, results []benchResult) error {
	ok := make([]benchResult, 0, len(results))
	for _, r := range results {
		if r.err != nil {
			colorPrintf(w, red, "  • %s/%d: %v\n", r.strategy, r.workers, r.err)
			continue
		}
		ok = append(ok, r)
	}
	if len(ok) == 0 {
		return fmt.Errorf("no benchmark run completed")
	}

	sort.Slice(ok, func(i, j int) bool { return ok[i].elapsed < ok[j].elapsed })
	fastest := ok[0].elapsed

	printSectionHeader(w, "THROUGHPUT COMPARISON",
		"How many tasks per second each configuration drains")

	table := newTable(w)
	table.Header("Rank", "Queue", "Workers", "Total Time", "Tasks/sec", "vs Fastest")
	for i, r := range ok {
		vs := "baseline"
		if i > 0 {
			vs = fmt.Sprintf("%.2fx", float64(r.elapsed)/float64(fastest))
		}
		_ = table.Append(
			fmt.Sprint(i+1),
			r.strategy.String(),
			fmt.Sprint(r.workers),
			r.elapsed.Round(time.Millisecond).String(),
			formatNumber(int64(r.throughput())),
			vs,
		)
	}
	if err := table.Render(); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(w)
	colorPrintf(w, green, "✅ Completed %d/%d runs\n", len(ok), len(results))
	return nil
}
