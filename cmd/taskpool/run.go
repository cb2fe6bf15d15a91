package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"
)

var (
	runWorkers int
	runTasks   int
	runDelay   time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run background work on a pool and drain it",
	Long: `run submits a batch of fire-and-forget tasks that each print a message
character by character, then shuts the pool down. Every submitted task runs
before the command returns.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		p, err := newPool(workerOption(runWorkers)...)
		if err != nil {
			return err
		}

		colorPrintf(out, bold, "Main thread starts... (%d workers)\n", p.Workers())

		var mu sync.Mutex
		if _, err := p.Go(func() { backgroundWork(out, &mu, 1, "text", 2*runDelay) }); err != nil {
			return err
		}
		for i := 2; i <= runTasks; i++ {
			if _, err := p.Go(func() { backgroundWork(out, &mu, i, fmt.Sprintf("bw#%d", i), runDelay) }); err != nil {
				return err
			}
		}

		colorPrintln(out, bold, "Main thread ends...")
		if err := p.Shutdown(appConfig.Pool.ShutdownTimeout); err != nil {
			return err
		}
		return renderStats(out, p)
	},
}

func init() {
	runCmd.Flags().IntVarP(&runWorkers, "workers", "w", 4, "number of workers")
	runCmd.Flags().IntVarP(&runTasks, "tasks", "n", 20, "number of tasks")
	runCmd.Flags().DurationVar(&runDelay, "delay", 10*time.Millisecond, "pause between printed characters")
}

// backgroundWork prints text one character at a time with a pause after each,
// then a completion line. mu keeps lines from different tasks whole.
func backgroundWork(w io.Writer, mu *sync.Mutex, id int, text string, delay time.Duration) {
	mu.Lock()
	colorPrintf(w, cyan, "BW#%d has started...\n", id)
	mu.Unlock()

	for _, c := range text {
		mu.Lock()
		_, _ = fmt.Fprintf(w, "BW#%d: %c\n", id, c)
		mu.Unlock()
		time.Sleep(delay)
	}

	mu.Lock()
	colorPrintf(w, green, "BW#%d is finished...\n", id)
	mu.Unlock()
}
