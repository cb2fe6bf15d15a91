package pool

import (
	"testing"
	"time"
)

func TestThreadPool_RateLimit(t *testing.T) {
	runStrategyTest(t, func(t *testing.T, s strategyConfig) {
		// 20 tasks/sec with a burst of 2: 2 tasks start at once, the other 8
		// start every 50ms, so the batch needs at least 400ms.
		p := newTestPool(t, append(s.opts, WithRateLimit(20, 2))...)

		const numTasks = 10
		start := time.Now()
		futures := make([]*Future[struct{}], 0, numTasks)
		for range numTasks {
			f, _ := p.Go(func() {})
			futures = append(futures, f)
		}
		for _, f := range futures {
			if _, err := f.Get(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		elapsed := time.Since(start)

		if elapsed < 350*time.Millisecond {
			t.Errorf("expected at least 350ms, got %v (rate limiting not applied)", elapsed)
		}
	}, 4)
}

func TestWithRateLimit_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		rate  float64
		burst int
	}{
		{"zero rate", 0, 1},
		{"negative rate", -1, 1},
		{"zero burst", 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			WithRateLimit(tt.rate, tt.burst)(cfg)
			if cfg.rateLimiter != nil {
				t.Error("invalid rate limit should leave the pool unthrottled")
			}
		})
	}
}
