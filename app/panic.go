package app

import (
	"fmt"
	"strings"

	"rtk/hal"
	"rtk/kernel"
)

const maxStackLines = 16

func installPanicHandler(l hal.Logger) {
	kernel.SetPanicHandler(func(info kernel.PanicInfo) {
		if l == nil {
			return
		}
		l.WriteLineString(fmt.Sprintf("rtk panic: task=%d panic=%v", info.TaskID, info.Value))
		if len(info.Stack) == 0 {
			l.WriteLineString("stack: unavailable")
			return
		}
		n := 0
		for _, line := range strings.Split(string(info.Stack), "\n") {
			if line == "" {
				continue
			}
			if n == maxStackLines {
				l.WriteLineString("...")
				break
			}
			l.WriteLineString(line)
			n++
		}
	})
}
