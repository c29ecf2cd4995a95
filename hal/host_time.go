//go:build !tinygo

package hal

import (
	"sync"
	"time"
)

// hostTime emits one tick per period from a wall-clock ticker. The ticker
// starts with the first call to Ticks.
type hostTime struct {
	once   sync.Once
	period time.Duration
	ch     chan uint64
	seq    uint64
}

func newHostTime(period time.Duration) *hostTime {
	if period <= 0 {
		period = time.Millisecond
	}
	return &hostTime{period: period, ch: make(chan uint64, 16)}
}

func (t *hostTime) Ticks() <-chan uint64 {
	t.once.Do(func() {
		go func() {
			ticker := time.NewTicker(t.period)
			defer ticker.Stop()
			for range ticker.C {
				t.emit()
			}
		}()
	})
	return t.ch
}

// emit sends the next sequence number. A tick the consumer has not drained
// is dropped, like a timer that overruns its interrupt.
func (t *hostTime) emit() {
	t.seq++
	select {
	case t.ch <- t.seq:
	default:
	}
}
