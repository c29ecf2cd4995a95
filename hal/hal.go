// Package hal is the board abstraction the kernel demo runs on: a line
// logger, a status LED, a millisecond tick stream and an optional
// framebuffer.
package hal

import "errors"

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// LED is the board status light. The idle task blinks it as a heartbeat.
type LED interface {
	High()
	Low()
}

// ErrNotImplemented is returned by operations the board cannot perform,
// such as presenting a framebuffer with no panel behind it.
var ErrNotImplemented = errors.New("hal: not implemented")

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a pixel buffer in Format. Present pushes it to the panel.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// Display gives access to the panel. Framebuffer returns nil without one.
type Display interface {
	Framebuffer() Framebuffer
}

// Time provides the kernel tick stream, one value per millisecond.
type Time interface {
	Ticks() <-chan uint64
}

// HAL is everything the demo touches on the board. The kernel itself only
// sees the simulated core.
type HAL interface {
	Logger() Logger
	LED() LED
	Display() Display
	Time() Time
}
