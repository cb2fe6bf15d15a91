package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/utkarsh5026/taskpool/pool"
)

var (
	futuresSaveTime time.Duration
	futuresPoll     time.Duration
)

var futuresCmd = &cobra.Command{
	Use:   "futures",
	Short: "Collect values and failures through futures",
	Long: `futures submits tasks with different result types: squares that may fail,
and a slow save whose future is polled until it is ready. Failures surface when
the future is read, never at submission.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		p, err := newPool()
		if err != nil {
			return err
		}
		defer p.Close()

		r1, err := pool.Submit(p, pool.Bind1(calculateSquare, 11))
		if err != nil {
			return err
		}
		r2, err := pool.Submit(p, func() (int, error) { return calculateSquare(13) })
		if err != nil {
			return err
		}
		r3, err := pool.Submit(p, pool.Bind1(calculateSquare, 21))
		if err != nil {
			return err
		}
		fsave, err := p.Go(func() { saveToFile(out, "data.txt", futuresSaveTime) })
		if err != nil {
			return err
		}

		for fsave.WaitFor(futuresPoll) != pool.StatusReady {
			colorPrintln(out, yellow, "I'm still waiting for saving a file...")
		}

		for i, f := range []*pool.Future[int]{r1, r2, r3} {
			printSquare(out, i+1, f)
		}

		results, err := pool.Collect(context.Background(), []*pool.Future[int]{r1, r2})
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "collected: %v\n", results)
		return nil
	},
}

func init() {
	futuresCmd.Flags().DurationVar(&futuresSaveTime, "save-time", time.Second, "duration of the simulated save")
	futuresCmd.Flags().DurationVar(&futuresPoll, "poll", 400*time.Millisecond, "interval between readiness checks")
}

var errUnlucky = errors.New("unlucky number")

func calculateSquare(x int) (int, error) {
	time.Sleep(time.Duration(x%7) * 10 * time.Millisecond)
	if x%7 == 0 {
		return 0, fmt.Errorf("square of %d: %w", x, errUnlucky)
	}
	return x * x, nil
}

func saveToFile(w io.Writer, filename string, d time.Duration) {
	_, _ = fmt.Fprintf(w, "Saving to file: %s\n", filename)
	time.Sleep(d)
	_, _ = fmt.Fprintf(w, "File saved: %s\n", filename)
}

func printSquare(w io.Writer, n int, f *pool.Future[int]) {
	v, err := f.Get()
	if err != nil {
		colorPrintf(w, red, "r%d: %v\n", n, err)
		return
	}
	colorPrintf(w, green, "r%d: %d\n", n, v)
}
