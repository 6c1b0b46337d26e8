// FILE: src/internal/event/stack.go
package event

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

const maxStackDepth = 64

// CallerCarrier is implemented by errors that recorded the stack where
// they were created
type CallerCarrier interface {
	Callers() []uintptr
}

// renderStack prefers a stack carried by err, then the live stack
// starting at pc. Returns "" when no frame data is available.
func renderStack(err error, pc uintptr) string {
	if pcs := carriedCallers(err); len(pcs) > 0 {
		return renderFrames(pcs)
	}
	if pc == 0 {
		return ""
	}
	return renderFrames(callersFrom(pc))
}

// carriedCallers tolerates typed nil errors whose methods dereference
// their receiver
func carriedCallers(err error) (pcs []uintptr) {
	if err == nil {
		return nil
	}
	defer func() {
		if recover() != nil {
			pcs = nil
		}
	}()
	var carrier CallerCarrier
	if errors.As(err, &carrier) {
		return carrier.Callers()
	}
	return nil
}

// callersFrom returns the live stack beginning at pc, or just pc when it
// is not part of the current goroutine's stack
func callersFrom(pc uintptr) []uintptr {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(1, pcs)
	for i := 0; i < n; i++ {
		if pcs[i] == pc {
			return pcs[i:n]
		}
	}
	return []uintptr{pc}
}

func renderFrames(pcs []uintptr) string {
	frames := runtime.CallersFrames(pcs)
	lines := make([]string, 0, len(pcs))
	for {
		f, more := frames.Next()
		if f.Function != "" && f.Function != "runtime.goexit" {
			lines = append(lines, fmt.Sprintf("%s(%s:%d)", f.Function, filepath.Base(f.File), f.Line))
		}
		if !more {
			break
		}
	}
	return strings.Join(lines, "\n")
}

// Capture records the caller's stack, skipping skip frames above Capture
func Capture(skip int) []uintptr {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(skip+2, pcs)
	return pcs[:n]
}
