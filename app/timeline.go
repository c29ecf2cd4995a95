package app

import (
	"fmt"
	"image/color"
	"sync"

	"rtk/kernel"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

const (
	timelineCap   = 512
	rowHeight     = 12
	labelWidth    = 56
	headerHeight  = 14
	pixelsPerTick = 2
)

var (
	colorBG     = color.RGBA{A: 0xFF}
	colorText   = color.RGBA{R: 0xE0, G: 0xE0, B: 0xE0, A: 0xFF}
	colorGrid   = color.RGBA{R: 0x30, G: 0x30, B: 0x30, A: 0xFF}
	colorPanic  = color.RGBA{R: 0xFF, G: 0x40, B: 0x40, A: 0xFF}
	colorByPrio = [kernel.NumPriorities]color.RGBA{
		kernel.PriorityNone: {R: 0x70, G: 0x70, B: 0x70, A: 0xFF},
		kernel.PriorityLow:  {R: 0x40, G: 0x80, B: 0xFF, A: 0xFF},
		kernel.PriorityMed:  {R: 0xFF, G: 0xC0, B: 0x20, A: 0xFF},
		kernel.PriorityHigh: {R: 0xFF, G: 0x50, B: 0x50, A: 0xFF},
	}
)

func uiFont() tinyfont.Fonter { return &proggy.TinySZ8pt7b }

type switchEvent struct {
	tick uint64
	to   kernel.TaskID
}

// segment is a run of ticks [start, end) during which task held the core.
type segment struct {
	task       kernel.TaskID
	start, end uint64
}

// timeline records context switches for drawing. record is called from the
// kernel's switch hook; everything else runs on the render loop.
type timeline struct {
	mu     sync.Mutex
	events []switchEvent
}

func (tl *timeline) record(_, to kernel.TaskID, tick uint64) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if len(tl.events) >= timelineCap {
		n := copy(tl.events, tl.events[len(tl.events)-timelineCap/2:])
		tl.events = tl.events[:n]
	}
	tl.events = append(tl.events, switchEvent{tick: tick, to: to})
}

// segments returns who ran when between from and now. Before the first
// recorded switch the idle task holds the core.
func (tl *timeline) segments(from, now uint64) []segment {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	var out []segment
	cur, start := kernel.IdleID, uint64(0)
	emit := func(end uint64) {
		s, e := max(start, from), min(end, now)
		if s < e {
			out = append(out, segment{task: cur, start: s, end: e})
		}
	}
	for _, ev := range tl.events {
		emit(ev.tick)
		cur, start = ev.to, ev.tick
	}
	emit(now)
	return out
}

// render draws one row per task into d: a label on the left, then bars for
// the last ticks that fit, coloured by the task's current priority.
func (tl *timeline) render(d *fbDisplay, s kernel.Snapshot, name func(kernel.TaskID) string) {
	w, h := d.Size()
	_ = d.FillRectangle(0, 0, w, h, colorBG)

	plotW := int(w) - labelWidth
	if plotW <= 0 {
		return
	}
	span := uint64(plotW / pixelsPerTick)
	from := uint64(0)
	if s.Ticks > span {
		from = s.Ticks - span
	}

	font := uiFont()
	rowOf := make(map[kernel.TaskID]int, len(s.Tasks))
	for i, t := range s.Tasks {
		y := int16(i * rowHeight)
		if int(y)+rowHeight > int(h) {
			break
		}
		rowOf[t.ID] = i
		label := name(t.ID)
		if t.Retired {
			label += "*"
		}
		label, _ = takeRunes(label, 8)
		tinyfont.WriteLine(d, font, 1, y+rowHeight-3, label, colorText)
		_ = d.FillRectangle(labelWidth, y+rowHeight-1, int16(plotW), 1, colorGrid)
	}

	prio := func(id kernel.TaskID) kernel.Priority {
		if int(id) < len(s.Tasks) {
			return s.Tasks[id].Priority
		}
		return kernel.PriorityNone
	}
	for _, seg := range tl.segments(from, s.Ticks) {
		row, ok := rowOf[seg.task]
		if !ok {
			continue
		}
		x := labelWidth + int16((seg.start-from)*pixelsPerTick)
		bw := int16((seg.end - seg.start) * pixelsPerTick)
		y := int16(row*rowHeight) + 2
		_ = d.FillRectangle(x, y, bw, rowHeight-4, colorByPrio[prio(seg.task)])
	}
}

// header draws the status line.
func header(d *fbDisplay, scenario string, s kernel.Snapshot, panicked bool) {
	w, h := d.Size()
	_ = d.FillRectangle(0, 0, w, h, colorBG)
	text := fmt.Sprintf("%s t=%d sw=%d run=%d", scenario, s.Ticks, s.Switches, s.Current)
	fg := colorText
	if panicked {
		text += " PANIC"
		fg = colorPanic
	}
	tinyfont.WriteLine(d, uiFont(), 1, h-3, text, fg)
}
