//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"rtk/app"
	"rtk/hal"
	"rtk/internal/console"
	"rtk/internal/scenario"
)

func main() {
	var (
		hcfg     hal.HeadlessConfig
		acfg     app.Config
		ref      string
		period   time.Duration
		useTerm  bool
		dump     bool
		listOnly bool
	)
	flag.BoolVar(&hcfg.Enabled, "headless", false, "Run without a window.")
	flag.IntVar(&hcfg.Hz, "hz", 60, "Redraw rate in headless mode.")
	flag.Uint64Var(&hcfg.Ticks, "ticks", 0, "Stop after N redraws in headless mode (0 = run forever).")
	flag.StringVar(&ref, "scenario", "inheritance", "Builtin scenario name or path to a YAML file.")
	flag.BoolVar(&listOnly, "list", false, "List builtin scenarios and exit.")
	flag.BoolVar(&acfg.Trace, "trace", false, "Log every scheduler event.")
	flag.DurationVar(&period, "tick", time.Millisecond, "Wall-clock length of one kernel tick.")
	var cycles uint
	flag.UintVar(&cycles, "cycles", 0, "Virtual time: one tick every N instruction boundaries (0 = wall clock).")
	flag.IntVar(&acfg.MaxTasks, "tasks", 0, "Task slots including idle (0 = default).")
	flag.BoolVar(&useTerm, "console", false, "Open an inspection console on the terminal.")
	flag.BoolVar(&dump, "dump", true, "Print the scheduler state on exit.")
	flag.Parse()

	if listOnly {
		fmt.Println(strings.Join(scenario.BuiltinNames(), "\n"))
		return
	}

	sc, err := scenario.Open(ref)
	if err != nil {
		fatalf("%v", err)
	}
	acfg.Scenario = sc
	acfg.CyclesPerTick = uint32(cycles)

	h := hal.NewHost(hal.HostConfig{TickPeriod: period})

	started := make(chan *app.System, 1)
	newApp := func(h hal.HAL) (func() error, error) {
		s, err := app.Start(h, acfg)
		if err != nil {
			return nil, err
		}
		started <- s
		return s.Step, nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if !hcfg.Enabled {
		if useTerm {
			go func() {
				s := <-started
				_ = console.Run(ctx, s.Kernel(), s.Name)
				finish(s, dump)
				os.Exit(0)
			}()
		}
		if err := hal.RunWindow(h, newApp); err != nil {
			fatalf("%v", err)
		}
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hal.RunHeadless(gctx, h, newApp, hcfg)
	})
	if useTerm {
		g.Go(func() error {
			select {
			case s := <-started:
				started <- s
				return console.Run(gctx, s.Kernel(), s.Name)
			case <-gctx.Done():
				return nil
			}
		})
	}
	err = g.Wait()

	select {
	case s := <-started:
		finish(s, dump)
	default:
	}
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, console.ErrQuit) {
		fatalf("%v", err)
	}
}

func finish(s *app.System, dump bool) {
	s.Close()
	if dump {
		_ = s.Dump(os.Stdout)
	}
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
