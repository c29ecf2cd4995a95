//go:build tinygo

package hal

import "time"

// tickSource is the kernel tick on TinyGo targets. The channel holds a few
// ticks; further ones are counted as dropped until the kernel catches up.
type tickSource struct {
	ch      chan uint64
	seq     uint64
	dropped uint32
}

func startTicks(period time.Duration) *tickSource {
	if period <= 0 {
		period = time.Millisecond
	}
	t := &tickSource{ch: make(chan uint64, 16)}
	go t.loop(period)
	return t
}

func (t *tickSource) loop(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for range ticker.C {
		t.seq++
		select {
		case t.ch <- t.seq:
		default:
			t.dropped++
		}
	}
}

func (t *tickSource) Ticks() <-chan uint64 { return t.ch }
