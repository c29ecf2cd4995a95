// Package trace defines the one-line text form of scheduler events. The
// kernel writes these lines to its logger; host tools parse them back from a
// serial stream.
package trace

import (
	"strconv"
	"strings"
)

// Kind is the event type.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindSwitch
	KindCreate
	KindBlock
	KindWake
	KindInherit
	KindRestore
	KindRetire
)

var kindNames = [...]string{
	KindUnknown: "unknown",
	KindSwitch:  "switch",
	KindCreate:  "create",
	KindBlock:   "block",
	KindWake:    "wake",
	KindInherit: "inherit",
	KindRestore: "restore",
	KindRetire:  "retire",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Prefix starts every trace line.
const Prefix = "sched:"

// Event is one scheduler event. From is only meaningful for KindSwitch.
type Event struct {
	Kind Kind
	From uint8
	Task uint8
	Prio uint8
	Tick uint64
}

// Format renders e as a single line without a trailing newline.
func Format(e Event) string {
	var b strings.Builder
	b.Grow(48)
	b.WriteString(Prefix)
	b.WriteByte(' ')
	b.WriteString(e.Kind.String())
	if e.Kind == KindSwitch {
		b.WriteString(" from=")
		b.WriteString(strconv.Itoa(int(e.From)))
		b.WriteString(" to=")
	} else {
		b.WriteString(" task=")
	}
	b.WriteString(strconv.Itoa(int(e.Task)))
	b.WriteString(" prio=")
	b.WriteString(strconv.Itoa(int(e.Prio)))
	b.WriteString(" tick=")
	b.WriteString(strconv.FormatUint(e.Tick, 10))
	return b.String()
}

// Parse reads a line produced by Format. Leading noise before the prefix
// (timestamps, UART garbage) is skipped.
func Parse(line string) (Event, bool) {
	i := strings.Index(line, Prefix)
	if i < 0 {
		return Event{}, false
	}
	fields := strings.Fields(line[i+len(Prefix):])
	if len(fields) < 2 {
		return Event{}, false
	}

	var e Event
	for k, name := range kindNames {
		if name == fields[0] {
			e.Kind = Kind(k)
		}
	}
	if e.Kind == KindUnknown {
		return Event{}, false
	}

	for _, f := range fields[1:] {
		key, val, ok := strings.Cut(f, "=")
		if !ok {
			return Event{}, false
		}
		n, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return Event{}, false
		}
		switch key {
		case "from":
			e.From = uint8(n)
		case "to", "task":
			e.Task = uint8(n)
		case "prio":
			e.Prio = uint8(n)
		case "tick":
			e.Tick = n
		}
	}
	return e, true
}
