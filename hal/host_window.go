//go:build !tinygo && cgo

package hal

import (
	"fmt"
	"image"

	"rtk/internal/buildinfo"

	"github.com/hajimehoshi/ebiten/v2"
)

// RunWindow starts a desktop window that displays the framebuffer. It
// blocks until the window closes.
func RunWindow(h HAL, newApp func(HAL) (func() error, error)) error {
	hh, ok := h.(*hostHAL)
	if !ok {
		return fmt.Errorf("window runner needs the host HAL, got %T", h)
	}
	step, err := newApp(hh)
	if err != nil {
		return err
	}

	g := &hostGame{h: hh, step: step}
	ebiten.SetWindowTitle(g.title(false))
	ebiten.SetWindowSize(hh.fb.width*2, hh.fb.height*2)
	ebiten.SetTPS(60)
	return ebiten.RunGame(g)
}

type hostGame struct {
	h       *hostHAL
	img     *image.RGBA
	fbImg   *ebiten.Image
	scratch []byte
	step    func() error

	ledToggles uint64
}

func (g *hostGame) title(led bool) string {
	mark := "○"
	if led {
		mark = "●"
	}
	return "rtk (" + buildinfo.Short() + ") " + mark
}

func (g *hostGame) Update() error {
	if g.step != nil {
		if err := g.step(); err != nil {
			return err
		}
	}
	if on, toggles := g.h.led.state(); toggles != g.ledToggles {
		g.ledToggles = toggles
		ebiten.SetWindowTitle(g.title(on))
	}
	return nil
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.h.fb
	if g.img == nil || g.img.Bounds().Dx() != fb.width || g.img.Bounds().Dy() != fb.height {
		g.img = image.NewRGBA(image.Rect(0, 0, fb.width, fb.height))
		g.scratch = make([]byte, len(fb.buf))
		if g.fbImg != nil {
			g.fbImg.Deallocate()
		}
		g.fbImg = ebiten.NewImage(fb.width, fb.height)
	}

	fb.snapshotRGB565(g.scratch)
	expandRGB565(g.img.Pix, g.scratch)

	g.fbImg.WritePixels(g.img.Pix)
	screen.DrawImage(g.fbImg, nil)
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.h.fb.width, g.h.fb.height
}
