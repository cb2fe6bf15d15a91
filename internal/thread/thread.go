// Package thread provides an owned handle to a goroutine locked to its own OS
// thread, with explicit join/detach and ownership transfer.
//
// A Thread is not safe for concurrent use by multiple goroutines: like any owned
// handle it has exactly one owner at a time. Ownership moves with Move.
//
//	t := thread.Spawn(func() { work() })
//	defer t.JoinOnExit() // joins if nobody joined or detached it
package thread

import (
	"errors"
	"runtime"
	"sync/atomic"

	"github.com/utkarsh5026/taskpool/internal/cpu"
	"github.com/utkarsh5026/taskpool/internal/types"
)

var (
	// ErrNotJoinable is returned by Join and Detach on an empty, joined or detached handle.
	ErrNotJoinable = errors.New("thread is not joinable")

	// ErrExited is returned by Join when the thread's function called runtime.Goexit.
	ErrExited = errors.New("thread function exited without returning")
)

var nextID atomic.Uint64

// noCopy makes `go vet` flag accidental copies of a Thread.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

type handle struct {
	id   uint64
	done chan struct{}
	err  error
}

// Thread owns one running (or finished but not yet joined) execution context.
// The zero value is an empty handle that owns nothing.
type Thread struct {
	noCopy noCopy
	h      *handle
}

// Spawn starts fn on a new goroutine locked to a dedicated OS thread.
// A panic inside fn is recovered and reported by Join as *types.PanicError;
// a call to runtime.Goexit is reported as ErrExited.
func Spawn(fn func()) *Thread {
	h := &handle{
		id:   nextID.Add(1),
		done: make(chan struct{}),
	}

	go func() {
		// The OS thread is discarded on exit rather than unlocked.
		runtime.LockOSThread()
		normalReturn := false
		defer close(h.done)
		defer func() {
			if r := recover(); r != nil {
				buf := make([]byte, 4096)
				n := runtime.Stack(buf, false)
				h.err = &types.PanicError{Value: r, Stack: buf[:n]}
				return
			}
			if !normalReturn {
				h.err = ErrExited
			}
		}()
		fn()
		normalReturn = true
	}()

	return &Thread{h: h}
}

// SpawnPinned is Spawn with the thread pinned to core id % NumCPU where supported.
func SpawnPinned(core int, fn func()) *Thread {
	return Spawn(func() {
		_, _ = cpu.PinWorker(core)
		fn()
	})
}

// ID returns the handle's thread id, or 0 for an empty handle.
func (t *Thread) ID() uint64 {
	if t.h == nil {
		return 0
	}
	return t.h.id
}

// Joinable reports whether the handle still owns a thread that must be joined or detached.
func (t *Thread) Joinable() bool {
	return t.h != nil
}

// Join blocks until the thread finishes and releases ownership. It returns the
// panic recovered from the thread's function, if any, or ErrExited.
func (t *Thread) Join() error {
	if t.h == nil {
		return ErrNotJoinable
	}
	h := t.h
	t.h = nil
	<-h.done
	return h.err
}

// Detach releases ownership without waiting; the thread keeps running.
func (t *Thread) Detach() error {
	if t.h == nil {
		return ErrNotJoinable
	}
	t.h = nil
	return nil
}

// Move transfers ownership to a new handle and leaves t empty.
func (t *Thread) Move() *Thread {
	moved := &Thread{h: t.h}
	t.h = nil
	return moved
}

// JoinOnExit joins the thread if the handle is still joinable. Meant for defer.
func (t *Thread) JoinOnExit() {
	if t.Joinable() {
		_ = t.Join()
	}
}

// Done returns a channel closed when the owned thread finishes, or nil for an empty handle.
func (t *Thread) Done() <-chan struct{} {
	if t.h == nil {
		return nil
	}
	return t.h.done
}

// Group owns a set of threads and joins all of them on Wait.
type Group struct {
	threads []*Thread
}

// Go spawns fn and adds the thread to the group.
func (g *Group) Go(fn func()) {
	g.threads = append(g.threads, Spawn(fn))
}

// Add moves t into the group.
func (g *Group) Add(t *Thread) {
	g.threads = append(g.threads, t.Move())
}

// Len returns the number of owned threads.
func (g *Group) Len() int {
	return len(g.threads)
}

// Wait joins every thread still owned by the group and returns the first panic, if any.
func (g *Group) Wait() error {
	var first error
	for _, t := range g.threads {
		if err := t.Join(); err != nil && first == nil && !errors.Is(err, ErrNotJoinable) {
			first = err
		}
	}
	g.threads = nil
	return first
}
