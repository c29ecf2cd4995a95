package kernel

import (
	"sync/atomic"
)

// PanicInfo describes a panic recovered from a task.
type PanicInfo struct {
	TaskID TaskID
	Value  any
	Stack  []byte
}

var (
	panicCount atomic.Uint32

	panicHandler atomic.Value // func(PanicInfo)
)

// InPanicMode reports whether any task has panicked.
func InPanicMode() bool {
	return panicCount.Load() > 0
}

// SetPanicHandler installs a process-wide handler for task panics.
//
// The handler is invoked for every task panic, on the panicking task, before
// the task is retired. It must not panic or call into the kernel.
func SetPanicHandler(fn func(PanicInfo)) {
	panicHandler.Store(fn)
}

func triggerPanic(info PanicInfo) {
	panicCount.Add(1)
	info.Stack = captureStack()
	if v := panicHandler.Load(); v != nil {
		if fn, ok := v.(func(PanicInfo)); ok && fn != nil {
			fn(info)
		}
	}
}
