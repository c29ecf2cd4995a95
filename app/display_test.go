package app

import (
	"image/color"
	"reflect"
	"testing"

	"rtk/hal"
	"rtk/kernel"
)

func hostFB(t *testing.T, w, h int) hal.Framebuffer {
	t.Helper()
	return hal.NewHost(hal.HostConfig{Width: w, Height: h}).Display().Framebuffer()
}

func pixelAt(fb hal.Framebuffer, x, y int) uint16 {
	buf := fb.Buffer()
	off := y*fb.StrideBytes() + x*2
	return uint16(buf[off]) | uint16(buf[off+1])<<8
}

func TestSubDisplayOffsetsAndClips(t *testing.T) {
	fb := hostFB(t, 16, 16)
	d := newFBDisplay(fb).sub(4, 8, 100, 100)
	if w, h := d.Size(); w != 12 || h != 8 {
		t.Fatalf("Size() = %d,%d, want 12,8", w, h)
	}

	white := color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	d.SetPixel(0, 0, white)
	d.SetPixel(20, 0, white)
	if got := pixelAt(fb, 4, 8); got != 0xFFFF {
		t.Fatalf("pixel at (4,8) = %#04x, want white", got)
	}

	_ = d.FillRectangle(-2, -2, 4, 4, white)
	if got := pixelAt(fb, 5, 9); got != 0xFFFF {
		t.Fatalf("pixel at (5,9) = %#04x, want white", got)
	}
	if got := pixelAt(fb, 3, 7); got != 0 {
		t.Fatalf("fill leaked outside the sub display: %#04x", got)
	}
}

func TestTimelineSegments(t *testing.T) {
	var tl timeline
	tl.record(0, 1, 10)
	tl.record(1, 2, 14)
	tl.record(2, 0, 20)

	got := tl.segments(12, 25)
	want := []segment{
		{task: 1, start: 12, end: 14},
		{task: 2, start: 14, end: 20},
		{task: kernel.IdleID, start: 20, end: 25},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("segments() = %+v, want %+v", got, want)
	}

	if got := tl.segments(0, 5); !reflect.DeepEqual(got, []segment{{task: kernel.IdleID, start: 0, end: 5}}) {
		t.Fatalf("segments() before the first switch = %+v", got)
	}
}

func TestTimelineBounded(t *testing.T) {
	var tl timeline
	for i := 0; i < 3*timelineCap; i++ {
		tl.record(0, kernel.TaskID(i%3), uint64(i))
	}
	if len(tl.events) > timelineCap {
		t.Fatalf("len(events) = %d, want <= %d", len(tl.events), timelineCap)
	}
	last := tl.events[len(tl.events)-1]
	if last.tick != uint64(3*timelineCap-1) {
		t.Fatalf("last event tick = %d, want the newest", last.tick)
	}
}

func TestLogPanePages(t *testing.T) {
	fb := hostFB(t, 120, 40)
	p := newLogPane(newFBDisplay(fb))
	if p.rows != 40/termFontHeight {
		t.Fatalf("rows = %d, want %d", p.rows, 40/termFontHeight)
	}

	for _, s := range []string{"one", "two", "three", "four"} {
		p.WriteLineString(s)
	}
	if !p.flush() {
		t.Fatalf("flush() = false with pending lines")
	}
	if p.used != p.rows-1 {
		t.Fatalf("used = %d, want %d", p.used, p.rows-1)
	}

	p.WriteLineString("five")
	p.flush()
	if p.used != 1 {
		t.Fatalf("used after paging = %d, want 1", p.used)
	}
	if p.flush() {
		t.Fatalf("flush() = true with nothing pending")
	}
}

func TestTakeRunes(t *testing.T) {
	prefix, rest := takeRunes("héllo", 2)
	if prefix != "hé" || rest != "llo" {
		t.Fatalf("takeRunes() = %q, %q", prefix, rest)
	}
	if prefix, rest := takeRunes("hi", 5); prefix != "hi" || rest != "" {
		t.Fatalf("takeRunes(short) = %q, %q", prefix, rest)
	}
}
