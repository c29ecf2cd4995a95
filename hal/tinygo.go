//go:build tinygo && baremetal

package hal

import (
	"machine"
	"time"
)

type boardHAL struct {
	logger *uartLogger
	led    *pinLED
	fb     Framebuffer
	t      *tickSource
}

// New returns the Pico (RP2040/RP2350) HAL.
//
// UART0 on GP0 (TX) / GP1 (RX) at 115200 8N1 carries the log and the
// scheduler trace; read it with rtkmon. The kernel tick is 1ms.
func New() HAL {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GP0,
		RX:       machine.GP1,
	})

	ledPin := machine.LED
	ledPin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	return &boardHAL{
		logger: &uartLogger{uart: uart},
		led:    &pinLED{pin: ledPin},
		fb:     &stubFramebuffer{w: 320, h: 320, format: PixelFormatRGB565},
		t:      startTicks(time.Millisecond),
	}
}

func (h *boardHAL) Logger() Logger   { return h.logger }
func (h *boardHAL) LED() LED         { return h.led }
func (h *boardHAL) Display() Display { return boardDisplay{fb: h.fb} }
func (h *boardHAL) Time() Time       { return h.t }
