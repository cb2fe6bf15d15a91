package pool

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Benchmark Workload Generators
// =============================================================================

// cpuBoundWork simulates a CPU-intensive operation
func cpuBoundWork(iterations, task int) int {
	result := 0
	for i := range iterations {
		result += i * task
	}
	return result
}

// mixedWork simulates a realistic workload with variable processing time
func mixedWork(task int) int {
	time.Sleep(time.Duration(task%4) * 100 * time.Microsecond)
	return cpuBoundWork(1000, task) + task
}

// =============================================================================
// Throughput Benchmarks
// =============================================================================

func BenchmarkThreadPool_WorkerScaling(b *testing.B) {
	const taskCount = 10_000

	for _, workers := range []int{1, 2, 4, 8, 16} {
		for _, s := range getAllStrategies(workers) {
			b.Run(fmt.Sprintf("%s/workers=%d", s.name, workers), func(b *testing.B) {
				for b.Loop() {
					p, err := New(s.opts...)
					if err != nil {
						b.Fatal(err)
					}
					for i := range taskCount {
						_, _ = SubmitValue(p, func() int { return cpuBoundWork(100, i) })
					}
					_ = p.Close()
				}
				b.ReportMetric(float64(taskCount*b.N)/b.Elapsed().Seconds(), "tasks/s")
			})
		}
	}
}

func BenchmarkThreadPool_MixedWork(b *testing.B) {
	const taskCount = 1_000

	for _, s := range getAllStrategies(8) {
		b.Run(s.name, func(b *testing.B) {
			for b.Loop() {
				p, _ := New(s.opts...)
				futures := make([]*Future[int], 0, taskCount)
				for i := range taskCount {
					f, _ := SubmitValue(p, func() int { return mixedWork(i) })
					futures = append(futures, f)
				}
				for _, f := range futures {
					_, _ = f.Get()
				}
				_ = p.Close()
			}
		})
	}
}

// =============================================================================
// Latency Benchmarks
// =============================================================================

// BenchmarkSubmit_RoundTrip measures one submission waited on by the submitter.
func BenchmarkSubmit_RoundTrip(b *testing.B) {
	runStrategyBench(b, 4, func(b *testing.B, p *ThreadPool) {
		for b.Loop() {
			f, _ := SubmitValue(p, func() int { return 1 })
			_, _ = f.Get()
		}
	})
}

// BenchmarkSubmit_Contended measures submission from many goroutines at once.
func BenchmarkSubmit_Contended(b *testing.B) {
	runStrategyBench(b, 4, func(b *testing.B, p *ThreadPool) {
		var wg sync.WaitGroup
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				wg.Add(1)
				_, _ = p.Go(wg.Done)
			}
		})
		wg.Wait()
	})
}

func BenchmarkFuture_FanOut(b *testing.B) {
	for _, readers := range []int{1, 8, 64} {
		b.Run(fmt.Sprintf("readers=%d", readers), func(b *testing.B) {
			for b.Loop() {
				f := NewFuture[int]()
				var wg sync.WaitGroup
				for range readers {
					wg.Add(1)
					go func() {
						defer wg.Done()
						_, _ = f.Get()
					}()
				}
				_ = f.Resolve(1)
				wg.Wait()
			}
		})
	}
}

func runStrategyBench(b *testing.B, workers int, fn func(b *testing.B, p *ThreadPool)) {
	for _, s := range getAllStrategies(workers) {
		b.Run(s.name, func(b *testing.B) {
			p, err := New(s.opts...)
			if err != nil {
				b.Fatal(err)
			}
			defer p.Close()
			fn(b, p)
		})
	}
}
