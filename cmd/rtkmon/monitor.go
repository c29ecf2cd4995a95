package main

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"rtk/internal/trace"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorDim     = "\x1b[2m"
)

var kindColors = map[trace.Kind]string{
	trace.KindSwitch:  colorCyan,
	trace.KindCreate:  colorGreen,
	trace.KindBlock:   colorMagenta,
	trace.KindWake:    colorGreen,
	trace.KindInherit: colorYellow,
	trace.KindRestore: colorYellow,
	trace.KindRetire:  colorRed,
}

type taskStats struct {
	id       uint8
	runs     uint64
	ticks    uint64
	blocks   uint64
	inherits uint64
	maxPrio  uint8
	retired  bool
}

type monitor struct {
	out   io.Writer
	tasks map[uint8]*taskStats

	running   uint8
	since     uint64
	lastTick  uint64
	haveTrace bool
	noise     uint64
}

func newMonitor(out io.Writer) *monitor {
	return &monitor{out: out, tasks: make(map[uint8]*taskStats)}
}

func (m *monitor) follow(r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		m.feed(sc.Text())
	}
	return sc.Err()
}

func (m *monitor) task(id uint8) *taskStats {
	s, ok := m.tasks[id]
	if !ok {
		s = &taskStats{id: id}
		m.tasks[id] = s
	}
	return s
}

// feed handles one line of board output. Lines that are not trace events
// are passed through dimmed.
func (m *monitor) feed(line string) {
	e, ok := trace.Parse(line)
	if !ok {
		m.noise++
		fmt.Fprintf(m.out, "%s%s%s\n", colorDim, line, colorReset)
		return
	}
	fmt.Fprintf(m.out, "%s%s%s\n", kindColors[e.Kind], trace.Format(e), colorReset)

	if e.Tick > m.lastTick {
		m.lastTick = e.Tick
	}
	t := m.task(e.Task)
	if e.Prio > t.maxPrio {
		t.maxPrio = e.Prio
	}
	switch e.Kind {
	case trace.KindSwitch:
		if m.haveTrace {
			m.task(e.From).ticks += e.Tick - m.since
		}
		m.haveTrace = true
		m.running = e.Task
		m.since = e.Tick
		t.runs++
	case trace.KindBlock:
		t.blocks++
	case trace.KindInherit:
		t.inherits++
	case trace.KindRetire:
		t.retired = true
	}
}

// writeSummary prints one row per task seen in the trace. The task running
// at the end of the stream is charged up to the last tick seen.
func (m *monitor) writeSummary(w io.Writer) {
	ticks := make(map[uint8]uint64, len(m.tasks))
	for id, t := range m.tasks {
		ticks[id] = t.ticks
	}
	if m.haveTrace {
		ticks[m.running] += m.lastTick - m.since
	}

	ids := make([]int, 0, len(m.tasks))
	for id := range m.tasks {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)

	fmt.Fprintf(w, "%-5s %-6s %-8s %-7s %-8s %-8s %s\n", "TASK", "RUNS", "TICKS", "BLOCKS", "INHERIT", "MAXPRIO", "")
	for _, id := range ids {
		t := m.tasks[uint8(id)]
		note := ""
		if t.retired {
			note = colorRed + "retired" + colorReset
		}
		fmt.Fprintf(w, "%-5d %-6d %-8d %-7d %-8d %-8d %s\n",
			t.id, t.runs, ticks[t.id], t.blocks, t.inherits, t.maxPrio, note)
	}
	if m.noise > 0 {
		fmt.Fprintf(w, "%d non-trace lines\n", m.noise)
	}
}
