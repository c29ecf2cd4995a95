package app

import (
	"image/color"
	"strings"
	"sync"
	"unicode/utf8"

	"rtk/hal"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyterm"
)

const (
	termFontHeight = 12
	termFontOffset = 9
	maxPending     = 256
)

// logPane shows the most recent log lines in a tinyterm terminal. Lines are
// queued from any goroutine and drawn by flush on the render loop. When the
// pane is full it is cleared and starts again at the top.
type logPane struct {
	mu      sync.Mutex
	pending []string
	dropped int

	d    *fbDisplay
	t    *tinyterm.Terminal
	cols int16
	rows int16
	used int16
}

func newLogPane(d *fbDisplay) *logPane {
	p := &logPane{d: d}
	p.reset()
	return p
}

func (p *logPane) WriteLineString(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pending) >= maxPending {
		p.pending = p.pending[1:]
		p.dropped++
	}
	p.pending = append(p.pending, s)
}

func (p *logPane) WriteLineBytes(b []byte) {
	p.WriteLineString(string(b))
}

func (p *logPane) take() ([]string, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	lines, dropped := p.pending, p.dropped
	p.pending, p.dropped = nil, 0
	return lines, dropped
}

// flush draws queued lines. It reports whether anything was drawn.
func (p *logPane) flush() bool {
	lines, dropped := p.take()
	if len(lines) == 0 {
		return false
	}
	if p.rows < 2 || p.cols < 1 {
		return false
	}
	if dropped > 0 {
		lines = append([]string{"... log lines dropped"}, lines...)
	}
	// Older lines would be paged away before they are seen.
	if limit := int(p.rows - 1); len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	for _, line := range lines {
		if p.used >= p.rows-1 {
			p.reset()
		}
		chunk, _ := takeRunes(strings.TrimRight(line, "\r\n"), p.cols)
		_, _ = p.t.Write([]byte(chunk))
		_, _ = p.t.Write([]byte("\r\n"))
		p.used++
	}
	p.t.Display()
	return true
}

func (p *logPane) reset() {
	w, h := p.d.Size()
	_ = p.d.FillRectangle(0, 0, w, h, color.RGBA{A: 0xFF})

	font := uiFont()
	p.t = tinyterm.NewTerminal(p.d)
	p.t.Configure(&tinyterm.Config{
		Font:       font,
		FontHeight: termFontHeight,
		FontOffset: termFontOffset,
	})
	_, charWidth := tinyfont.LineWidth(font, "0")
	p.cols, p.rows = 0, h/termFontHeight
	if charWidth > 0 {
		p.cols = w / int16(charWidth)
	}
	p.used = 0
}

// teeLogger copies every line to each sink.
type teeLogger []hal.Logger

func (t teeLogger) WriteLineString(s string) {
	for _, l := range t {
		if l != nil {
			l.WriteLineString(s)
		}
	}
}

func (t teeLogger) WriteLineBytes(b []byte) {
	for _, l := range t {
		if l != nil {
			l.WriteLineBytes(b)
		}
	}
}

// takeRunes splits s after n runes.
func takeRunes(s string, n int16) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	if int64(len(s)) <= int64(n) {
		return s, ""
	}
	var i int
	var count int16
	for i < len(s) && count < n {
		_, size := utf8.DecodeRuneInString(s[i:])
		if size <= 0 {
			break
		}
		i += size
		count++
	}
	if i >= len(s) {
		return s, ""
	}
	return s[:i], s[i:]
}
