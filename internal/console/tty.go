//go:build !tinygo

package console

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-tty"

	"rtk/kernel"
)

// Run reads commands from the controlling terminal until quit, EOF or ctx
// is done. Returning on ctx waits for the line being typed.
func Run(ctx context.Context, k Inspector, names func(kernel.TaskID) string) error {
	t, err := tty.Open()
	if err != nil {
		return fmt.Errorf("console: %w", err)
	}
	defer t.Close()

	out := colorable.NewColorable(t.Output())
	c := New(k, names, out, true)
	fmt.Fprintln(out, "rtk console, type help")

	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		for {
			fmt.Fprint(out, "rtk> ")
			line, err := t.ReadString()
			if err != nil {
				errc <- err
				return
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("console: %w", err)
		case line := <-lines:
			if err := c.Exec(line); err != nil {
				if errors.Is(err, ErrQuit) {
					return ErrQuit
				}
				return err
			}
		}
	}
}
