// Package cpu binds worker goroutines to OS threads and, where the platform
// allows it, pins those threads to CPU cores.
package cpu

import (
	"errors"
	"runtime"
)

// ErrAffinityUnsupported is returned when the platform cannot pin threads to cores.
var ErrAffinityUnsupported = errors.New("cpu affinity is not supported on this platform")

// LockThread wires the calling goroutine to its current OS thread for as long
// as the goroutine runs, until the returned release func is called.
func LockThread() (release func()) {
	runtime.LockOSThread()
	return runtime.UnlockOSThread
}

// PinWorker locks the calling goroutine to an OS thread and pins that thread to
// core workerID % NumCPU. The thread is never unlocked: when the goroutine
// exits the runtime terminates it instead of returning a thread with a narrowed
// mask to the scheduler.
func PinWorker(workerID int) (core int, err error) {
	runtime.LockOSThread()
	return pinToCore(normalize(workerID))
}

// NumCPU returns the number of logical CPUs usable by the process.
func NumCPU() int {
	return runtime.NumCPU()
}

func normalize(cpuID int) int {
	n := runtime.NumCPU()
	if cpuID < 0 {
		cpuID = -cpuID
	}
	return cpuID % n
}
