//go:build tinygo && !baremetal

package hal

import "time"

// wasmHAL serves `tinygo run` on targets without pins (linux, wasm). Log
// lines go to the runtime's println and the LED is a bit.
type wasmHAL struct {
	led bool
	fb  *tinyGoHostFramebuffer
	t   *tickSource
}

// New returns the TinyGo-on-host HAL.
func New() HAL {
	return &wasmHAL{
		fb: newTinyGoHostFramebuffer(320, 320),
		t:  startTicks(time.Millisecond),
	}
}

func (h *wasmHAL) Logger() Logger   { return printLogger{} }
func (h *wasmHAL) LED() LED         { return (*wasmLED)(&h.led) }
func (h *wasmHAL) Display() Display { return wasmDisplay{fb: h.fb} }
func (h *wasmHAL) Time() Time       { return h.t }

type wasmDisplay struct {
	fb Framebuffer
}

func (d wasmDisplay) Framebuffer() Framebuffer { return d.fb }

type printLogger struct{}

func (printLogger) WriteLineString(s string) { println(s) }
func (printLogger) WriteLineBytes(b []byte)  { println(string(b)) }

type wasmLED bool

func (l *wasmLED) High() { *l = true }
func (l *wasmLED) Low()  { *l = false }
