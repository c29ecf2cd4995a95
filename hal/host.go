//go:build !tinygo

package hal

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type hostHAL struct {
	logger *hostLogger
	led    *hostLED
	fb     *hostFramebuffer
	t      *hostTime
}

// HostConfig controls the host HAL.
type HostConfig struct {
	// Out receives log lines. Default os.Stdout.
	Out io.Writer
	// Width and Height size the framebuffer. Default 320x320.
	Width, Height int
	// TickPeriod is the wall-clock length of one kernel tick. Default 1ms.
	TickPeriod time.Duration
}

// New returns a host HAL implementation.
func New() HAL {
	return NewHost(HostConfig{})
}

// NewHost returns a host HAL implementation configured by cfg.
func NewHost(cfg HostConfig) HAL {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = 320, 320
	}
	logger := &hostLogger{w: cfg.Out}
	return &hostHAL{
		logger: logger,
		led:    &hostLED{},
		fb:     newHostFramebuffer(cfg.Width, cfg.Height),
		t:      newHostTime(cfg.TickPeriod),
	}
}

func (h *hostHAL) Logger() Logger   { return h.logger }
func (h *hostHAL) LED() LED         { return h.led }
func (h *hostHAL) Display() Display { return hostDisplay{fb: h.fb} }
func (h *hostHAL) Time() Time       { return h.t }

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

// hostLED keeps the pin level; the window draws it in the title bar.
type hostLED struct {
	mu      sync.Mutex
	on      bool
	toggles uint64
}

func (l *hostLED) High() { l.set(true) }
func (l *hostLED) Low()  { l.set(false) }

func (l *hostLED) set(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.on != on {
		l.toggles++
	}
	l.on = on
}

func (l *hostLED) state() (on bool, toggles uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on, l.toggles
}
