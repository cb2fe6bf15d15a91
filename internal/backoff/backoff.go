// Package backoff computes delays between resubmissions of a failed task.
//
// The pool itself never retries: a task runs once and its failure is delivered
// through its future. Callers that want another attempt submit a fresh task,
// pacing the attempts with a Strategy and driving them with Retry.
package backoff

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// maxShift caps the exponent so 1<<attempt cannot overflow.
const maxShift = 62

// Strategy computes the delay before a resubmission.
type Strategy interface {
	// Delay returns the wait before retry number attempt, 0-indexed.
	Delay(attempt int) time.Duration

	// Reset clears state kept between attempts. Call it before a new task.
	Reset()
}

// Kind names a Strategy implementation.
type Kind int

const (
	// KindExponential doubles the delay on every attempt.
	KindExponential Kind = iota
	// KindJittered is KindExponential scaled by a random factor in [1-j, 1+j].
	KindJittered
	// KindDecorrelated draws each delay from [initial, 3 × previous delay].
	KindDecorrelated
)

func (k Kind) String() string {
	switch k {
	case KindJittered:
		return "jittered"
	case KindDecorrelated:
		return "decorrelated"
	default:
		return "exponential"
	}
}

// ParseKind maps a strategy name to its Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(name) {
	case "exponential", "":
		return KindExponential, nil
	case "jittered":
		return KindJittered, nil
	case "decorrelated":
		return KindDecorrelated, nil
	default:
		return KindExponential, fmt.Errorf("unknown backoff strategy %q (expected exponential, jittered, decorrelated)", name)
	}
}

// New returns the Strategy of the given kind. jitter is only used by KindJittered
// and is clamped to [0, 1].
func New(kind Kind, initial, maxDelay time.Duration, jitter float64) Strategy {
	switch kind {
	case KindJittered:
		return &jittered{initial: initial, maxDelay: maxDelay, factor: min(max(jitter, 0), 1)}
	case KindDecorrelated:
		return &decorrelated{initial: initial, maxDelay: maxDelay, prev: initial}
	default:
		return exponential{initial: initial, maxDelay: maxDelay}
	}
}

// exponential yields initial * 2^attempt, capped at maxDelay.
type exponential struct {
	initial, maxDelay time.Duration
}

func (e exponential) Delay(attempt int) time.Duration {
	return exponentialDelay(attempt, e.initial, e.maxDelay)
}

func (exponential) Reset() {}

// jittered spreads retries of tasks that failed together.
type jittered struct {
	initial, maxDelay time.Duration
	factor            float64
}

func (j *jittered) Delay(attempt int) time.Duration {
	if attempt < 0 {
		return 0
	}
	base := exponentialDelay(attempt, j.initial, j.maxDelay)
	scale := 1 + (rand.Float64()*2-1)*j.factor // #nosec G404 -- jitter needs no crypto rand
	return min(max(time.Duration(float64(base)*scale), 0), j.maxDelay)
}

func (*jittered) Reset() {}

// decorrelated keeps the previous delay, so it is safe for concurrent use
// only through its mutex.
type decorrelated struct {
	initial, maxDelay time.Duration

	mu   sync.Mutex
	prev time.Duration
}

func (d *decorrelated) Delay(attempt int) time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()

	if attempt <= 0 {
		d.prev = d.initial
		return d.initial
	}

	upper := min(d.prev*3, d.maxDelay)
	span := upper - d.initial
	if span <= 0 {
		d.prev = d.initial
		return d.initial
	}

	d.prev = d.initial + rand.N(span) // #nosec G404 -- jitter needs no crypto rand
	return d.prev
}

func (d *decorrelated) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prev = d.initial
}

func exponentialDelay(attempt int, initial, maxDelay time.Duration) time.Duration {
	if attempt < 0 {
		return 0
	}
	if attempt > maxShift {
		return maxDelay
	}

	delay := time.Duration(int64(1)<<uint(attempt)) * initial
	if delay > maxDelay || delay < 0 || delay/time.Duration(int64(1)<<uint(attempt)) != initial {
		return maxDelay
	}
	return delay
}
