package thread

import (
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/utkarsh5026/taskpool/internal/types"
)

func TestThread_Join(t *testing.T) {
	t.Run("join waits for completion", func(t *testing.T) {
		var finished atomic.Bool
		th := Spawn(func() {
			time.Sleep(30 * time.Millisecond)
			finished.Store(true)
		})

		if !th.Joinable() {
			t.Fatal("spawned thread should be joinable")
		}
		if err := th.Join(); err != nil {
			t.Fatalf("unexpected join error: %v", err)
		}
		if !finished.Load() {
			t.Error("join returned before the thread finished")
		}
		if th.Joinable() {
			t.Error("joined thread should not be joinable")
		}
	})

	t.Run("second join fails", func(t *testing.T) {
		th := Spawn(func() {})
		_ = th.Join()

		if err := th.Join(); !errors.Is(err, ErrNotJoinable) {
			t.Errorf("expected ErrNotJoinable, got %v", err)
		}
	})

	t.Run("empty handle is not joinable", func(t *testing.T) {
		var th Thread

		if th.Joinable() {
			t.Error("zero Thread should not be joinable")
		}
		if th.ID() != 0 {
			t.Errorf("expected id 0, got %d", th.ID())
		}
		if err := th.Join(); !errors.Is(err, ErrNotJoinable) {
			t.Errorf("expected ErrNotJoinable, got %v", err)
		}
	})

	t.Run("panic is reported by join", func(t *testing.T) {
		th := Spawn(func() {
			panic("basic_string::at")
		})

		err := th.Join()
		var pe *types.PanicError
		if !errors.As(err, &pe) {
			t.Fatalf("expected *types.PanicError, got %v", err)
		}
		if pe.Value != "basic_string::at" {
			t.Errorf("unexpected panic value %v", pe.Value)
		}
	})

	t.Run("goexit is reported by join", func(t *testing.T) {
		th := Spawn(func() {
			runtime.Goexit()
		})

		if err := th.Join(); !errors.Is(err, ErrExited) {
			t.Errorf("expected ErrExited, got %v", err)
		}
	})
}

func TestThread_Move(t *testing.T) {
	release := make(chan struct{})
	th1 := Spawn(func() { <-release })
	id := th1.ID()

	th2 := th1.Move()

	if th1.Joinable() {
		t.Error("moved-from thread should be empty")
	}
	if !th2.Joinable() || th2.ID() != id {
		t.Errorf("moved-to thread should own id %d, got %d", id, th2.ID())
	}

	close(release)
	if err := th2.Join(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestThread_Detach(t *testing.T) {
	release := make(chan struct{})
	th := Spawn(func() { <-release })
	done := th.Done()

	if err := th.Detach(); err != nil {
		t.Fatalf("detach failed: %v", err)
	}
	if th.Joinable() {
		t.Error("detached thread should not be joinable")
	}
	if err := th.Detach(); !errors.Is(err, ErrNotJoinable) {
		t.Errorf("expected ErrNotJoinable, got %v", err)
	}

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("detached thread never finished")
	}
}

func TestThread_JoinOnExit(t *testing.T) {
	var backup []int
	source := []int{1, 4, 5, 6, 7, 23, 645, 665, 42}

	func() {
		th := Spawn(func() {
			time.Sleep(20 * time.Millisecond)
			backup = append(backup, source...)
		})
		defer th.JoinOnExit()
	}()

	if len(backup) != len(source) {
		t.Errorf("expected scope exit to join, backup has %d items", len(backup))
	}
}

func TestGroup_Wait(t *testing.T) {
	var g Group
	var count atomic.Int32

	for range 5 {
		g.Go(func() { count.Add(1) })
	}
	g.Add(Spawn(func() { count.Add(1) }))
	g.Go(func() { panic("first") })

	if g.Len() != 7 {
		t.Errorf("expected 7 threads, got %d", g.Len())
	}

	err := g.Wait()
	if err == nil {
		t.Error("expected panic to be reported")
	}
	if count.Load() != 6 {
		t.Errorf("expected 6 completions, got %d", count.Load())
	}
	if g.Len() != 0 {
		t.Errorf("expected empty group after wait, got %d", g.Len())
	}
}
