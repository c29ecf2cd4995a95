//go:build tinygo && baremetal

package hal

import "machine"

type boardDisplay struct {
	fb Framebuffer
}

func (d boardDisplay) Framebuffer() Framebuffer { return d.fb }

// uartLogger writes CRLF-terminated lines, which is what serial monitors
// and rtkmon expect.
type uartLogger struct {
	uart *machine.UART
}

func (l *uartLogger) WriteLineString(s string) {
	for i := 0; i < len(s); i++ {
		l.uart.WriteByte(s[i])
	}
	l.crlf()
}

func (l *uartLogger) WriteLineBytes(b []byte) {
	l.uart.Write(b)
	l.crlf()
}

func (l *uartLogger) crlf() {
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

// pinLED drives the on-board LED. The idle task toggles it as a heartbeat.
type pinLED struct {
	pin machine.Pin
	on  bool
}

func (l *pinLED) High() { l.pin.High(); l.on = true }
func (l *pinLED) Low()  { l.pin.Low(); l.on = false }
