package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/utkarsh5026/taskpool/internal/thread"
)

var threadsCount int

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "Spawn, move and join owned OS threads",
	Long: `threads demonstrates the joining thread handle the pool's workers are modeled
on: each handle owns one goroutine locked to its own OS thread, ownership moves
between handles, and a handle that is still joinable is joined on exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		var mu sync.Mutex
		say := func(format string, a ...any) {
			mu.Lock()
			defer mu.Unlock()
			_, _ = fmt.Fprintf(out, format, a...)
		}

		t := thread.Spawn(func() {
			time.Sleep(20 * time.Millisecond)
			say("first thread done\n")
		})
		moved := t.Move()
		say("after move: source joinable=%t, target joinable=%t (id %d)\n", t.Joinable(), moved.Joinable(), moved.ID())
		if err := moved.Join(); err != nil {
			return err
		}

		var group thread.Group
		for i := range threadsCount {
			group.Go(func() {
				time.Sleep(time.Duration(i) * 5 * time.Millisecond)
				say("thread #%d done\n", i)
			})
		}
		group.Add(thread.Spawn(func() { panic("thread failure") }))

		if err := group.Wait(); err != nil {
			colorPrintf(out, yellow, "group reported: %v\n", firstLine(err.Error()))
		}

		scoped := thread.Spawn(func() { say("scoped thread done\n") })
		defer scoped.JoinOnExit()

		colorPrintln(out, green, "group joined")
		return nil
	},
}

func init() {
	threadsCmd.Flags().IntVarP(&threadsCount, "threads", "t", 4, "number of threads in the group")
}

func firstLine(s string) string {
	for i, c := range s {
		if c == '\n' {
			return s[:i]
		}
	}
	return s
}
