//go:build debug

package types

import (
	"fmt"
	"log"
	"os"
)

var debugLogger = log.New(os.Stderr, "[TASKPOOL DEBUG] ", log.Ltime|log.Lmicroseconds|log.Lshortfile)

// debugLog logs debug messages when built with -tags debug
func debugLog(format string, args ...interface{}) {
	_ = debugLogger.Output(2, fmt.Sprintf(format, args...))
}

// onDoubleResolve is fatal in debug builds: resolving twice is a programming error.
func onDoubleResolve(id int64) {
	panic(fmt.Sprintf("%v: task %d", ErrAlreadyResolved, id))
}
