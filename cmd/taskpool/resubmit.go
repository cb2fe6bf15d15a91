package main

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/utkarsh5026/taskpool/internal/backoff"
	"github.com/utkarsh5026/taskpool/pool"
)

var (
	resubmitAttempts int
	resubmitFailures int
	resubmitStrategy string
	resubmitInitial  time.Duration
	resubmitMaxDelay time.Duration
	resubmitJitter   float64
)

var errTransientFailed = errors.New("transient failure")

var resubmitCmd = &cobra.Command{
	Use:   "resubmit",
	Short: "Resubmit a flaky task with backoff until it succeeds",
	Long: `resubmit shows submitter-side retry. The pool runs every task exactly once and
reports its failure through the future; here the caller reads the failure,
waits according to a backoff strategy and submits a fresh task.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		kind, err := backoff.ParseKind(resubmitStrategy)
		if err != nil {
			return err
		}
		strategy := backoff.New(kind, resubmitInitial, resubmitMaxDelay, resubmitJitter)

		p, err := newPool()
		if err != nil {
			return err
		}
		defer p.Close()

		var calls atomic.Int32
		flaky := func() (string, error) {
			n := calls.Add(1)
			if int(n) <= resubmitFailures {
				return "", fmt.Errorf("call %d: %w", n, errTransientFailed)
			}
			return fmt.Sprintf("succeeded on call %d", n), nil
		}

		var result string
		err = backoff.Retry(cmd.Context(), strategy, resubmitAttempts,
			func(attempt int) error {
				f, err := pool.Submit(p, flaky)
				if err != nil {
					return err
				}
				result, err = f.Get()
				return err
			},
			func(attempt int, delay time.Duration, err error) {
				colorPrintf(out, yellow, "attempt %d failed (%v), resubmitting in %v\n", attempt, err, delay)
			},
		)
		if err != nil {
			colorPrintf(out, red, "gave up after %d attempts: %v\n", resubmitAttempts, err)
			return err
		}

		colorPrintf(out, green, "%s (%s backoff)\n", result, kind)
		return nil
	},
}

func init() {
	flags := resubmitCmd.Flags()
	flags.IntVar(&resubmitAttempts, "attempts", 5, "maximum number of submissions")
	flags.IntVar(&resubmitFailures, "failures", 2, "number of calls that fail before the task succeeds")
	flags.StringVar(&resubmitStrategy, "backoff", "exponential", "backoff strategy: exponential, jittered, decorrelated")
	flags.DurationVar(&resubmitInitial, "initial-delay", 50*time.Millisecond, "delay before the first resubmission")
	flags.DurationVar(&resubmitMaxDelay, "max-delay", 2*time.Second, "upper bound for any delay")
	flags.Float64Var(&resubmitJitter, "jitter", 0.2, "jitter factor for the jittered strategy")
}
