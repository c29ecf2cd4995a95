//go:build tinygo && bootdebug

package app

import (
	"image/color"
	"machine"

	"rtk/hal"

	"tinygo.org/x/tinyfont"
)

// bootStep reports boot progress on the UART, the USB CDC port and the
// panel, for boards that hang before the log pane is up.
func bootStep(h hal.HAL, msg string) {
	line := "bootdiag: " + msg
	if h == nil {
		return
	}
	if l := h.Logger(); l != nil {
		l.WriteLineString(line)
	}
	// Also stream to USB CDC when it is available.
	if usb := machine.USBCDC; usb != nil {
		_, _ = usb.Write([]byte(line + "\r\n"))
	}

	disp := h.Display()
	if disp == nil {
		return
	}
	fb := disp.Framebuffer()
	if fb == nil {
		return
	}
	fb.ClearRGB(0, 0, 0)
	d := newFBDisplay(fb)
	fg := color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	tinyfont.WriteLine(d, uiFont(), 0, 12, "rtk boot", fg)
	tinyfont.WriteLine(d, uiFont(), 0, 28, msg, fg)
	_ = fb.Present()
}
