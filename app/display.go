package app

import (
	"image/color"

	"rtk/hal"

	"tinygo.org/x/drivers"
)

// fbDisplay draws into a rectangle of a framebuffer. It satisfies the
// drivers display interfaces tinyfont and tinyterm draw through.
type fbDisplay struct {
	fb         hal.Framebuffer
	x0, y0     int
	width, hgt int
}

var _ drivers.Displayer = (*fbDisplay)(nil)

func newFBDisplay(fb hal.Framebuffer) *fbDisplay {
	return &fbDisplay{fb: fb, width: fb.Width(), hgt: fb.Height()}
}

// sub returns a display for the given rectangle, clipped to d.
func (d *fbDisplay) sub(x, y, w, h int) *fbDisplay {
	x = clampInt(x, 0, d.width)
	y = clampInt(y, 0, d.hgt)
	w = clampInt(w, 0, d.width-x)
	h = clampInt(h, 0, d.hgt-y)
	return &fbDisplay{fb: d.fb, x0: d.x0 + x, y0: d.y0 + y, width: w, hgt: h}
}

func (d *fbDisplay) Size() (x, y int16) {
	return int16(d.width), int16(d.hgt)
}

func (d *fbDisplay) SetPixel(x, y int16, c color.RGBA) {
	if d.fb.Format() != hal.PixelFormatRGB565 {
		return
	}
	buf := d.fb.Buffer()
	if buf == nil {
		return
	}
	ix, iy := int(x), int(y)
	if ix < 0 || ix >= d.width || iy < 0 || iy >= d.hgt {
		return
	}

	pixel := rgb565From888(c.R, c.G, c.B)
	off := (d.y0+iy)*d.fb.StrideBytes() + (d.x0+ix)*2
	if off < 0 || off+1 >= len(buf) {
		return
	}
	buf[off] = byte(pixel)
	buf[off+1] = byte(pixel >> 8)
}

func (d *fbDisplay) Display() error {
	return nil
}

func (d *fbDisplay) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	if d.fb.Format() != hal.PixelFormatRGB565 {
		return nil
	}
	buf := d.fb.Buffer()
	if buf == nil {
		return nil
	}

	x0 := clampInt(int(x), 0, d.width)
	y0 := clampInt(int(y), 0, d.hgt)
	x1 := clampInt(int(x)+int(width), 0, d.width)
	y1 := clampInt(int(y)+int(height), 0, d.hgt)
	if x0 >= x1 || y0 >= y1 {
		return nil
	}

	pixel := rgb565From888(c.R, c.G, c.B)
	lo := byte(pixel)
	hi := byte(pixel >> 8)

	stride := d.fb.StrideBytes()
	for py := y0; py < y1; py++ {
		row := (d.y0 + py) * stride
		for px := x0; px < x1; px++ {
			off := row + (d.x0+px)*2
			if off < 0 || off+1 >= len(buf) {
				continue
			}
			buf[off] = lo
			buf[off+1] = hi
		}
	}
	return nil
}

// SetScroll is a no-op; the log pane pages instead of scrolling.
func (d *fbDisplay) SetScroll(line int16) {}

func (d *fbDisplay) SetRotation(rotation drivers.Rotation) error {
	return nil
}

func rgb565From888(r, g, b uint8) uint16 {
	return uint16((uint16(r>>3)&0x1F)<<11 | (uint16(g>>2)&0x3F)<<5 | (uint16(b>>3) & 0x1F))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
