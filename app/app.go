// Package app boots the kernel on a HAL, runs a scenario as kernel tasks
// and draws a live scheduling timeline with a log pane underneath.
package app

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"rtk/cpu"
	"rtk/hal"
	"rtk/internal/buildinfo"
	"rtk/internal/scenario"
	"rtk/kernel"
)

// Config selects the scenario and sizes the kernel.
type Config struct {
	Scenario *scenario.Scenario

	// MaxTasks, StackBytes and RAMBytes size the kernel and the simulated
	// core. Zero values take the kernel and core defaults.
	MaxTasks   int
	StackBytes uint32
	RAMBytes   uint32

	// Trace logs every scheduler event.
	Trace bool

	// CyclesPerTick switches to virtual time: a tick every N instruction
	// boundaries instead of the HAL tick stream.
	CyclesPerTick uint32
}

const heartbeatTicks = 500

// System is a running kernel plus its display.
type System struct {
	h   hal.HAL
	cfg Config

	c    *cpu.CPU
	k    *kernel.Kernel
	work *workload
	log  hal.Logger

	fb       hal.Framebuffer
	headerD  *fbDisplay
	timeD    *fbDisplay
	pane     *logPane
	timeline *timeline

	booted  chan struct{}
	bootErr error

	done      chan struct{}
	closeOnce sync.Once
}

// Start boots a kernel running cfg.Scenario and returns once the idle task
// has created the scenario's boot tasks.
func Start(h hal.HAL, cfg Config) (*System, error) {
	if cfg.Scenario == nil {
		return nil, errors.New("app: no scenario")
	}
	slots := cfg.MaxTasks
	if slots <= 0 {
		slots = 6
	}
	if err := cfg.Scenario.CheckCapacity(slots); err != nil {
		return nil, err
	}

	s := &System{
		h:        h,
		cfg:      cfg,
		timeline: &timeline{},
		booted:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.setupDisplay()

	sinks := teeLogger{h.Logger()}
	if s.pane != nil {
		sinks = append(sinks, s.pane)
	}
	s.log = sinks
	installPanicHandler(s.log)

	s.c = cpu.New(cpu.Config{RAMBytes: cfg.RAMBytes, CyclesPerTick: cfg.CyclesPerTick})
	s.k = kernel.New(s.c, kernel.Config{
		MaxTasks:   slots,
		StackBytes: cfg.StackBytes,
		TimeSlice:  cfg.Scenario.TimeSlice,
		Logger:     s.log,
		Trace:      cfg.Trace,
		OnSwitch:   s.timeline.record,
	})
	s.work = newWorkload(s.k, cfg.Scenario, s.log)

	s.log.WriteLineString(buildinfo.Banner(cfg.Scenario.Name))
	bootStep(h, "kernel init")
	go s.idle()
	<-s.booted
	if s.bootErr != nil {
		return nil, s.bootErr
	}
	if cfg.CyclesPerTick == 0 {
		go s.forwardTicks()
	}
	bootStep(h, "running "+cfg.Scenario.Name)
	return s, nil
}

func (s *System) setupDisplay() {
	disp := s.h.Display()
	if disp == nil {
		return
	}
	fb := disp.Framebuffer()
	if fb == nil || fb.Width() <= 0 || fb.Height() <= 0 {
		return
	}
	s.fb = fb
	fb.ClearRGB(0, 0, 0)

	full := newFBDisplay(fb)
	w, h := fb.Width(), fb.Height()
	slots := s.cfg.MaxTasks
	if slots <= 0 {
		slots = 6
	}
	timeH := slots * rowHeight
	s.headerD = full.sub(0, 0, w, headerHeight)
	s.timeD = full.sub(0, headerHeight, w, timeH)
	s.pane = newLogPane(full.sub(0, headerHeight+timeH+2, w, h-headerHeight-timeH-2))
}

// idle is the kernel's idle task. It boots the kernel and the scenario,
// then sleeps between interrupts and blinks the LED.
func (s *System) idle() {
	ctx, err := s.k.Initialize()
	if err != nil {
		s.bootErr = fmt.Errorf("app: kernel init: %w", err)
		close(s.booted)
		return
	}
	if err := s.work.boot(); err != nil {
		s.bootErr = fmt.Errorf("app: %w", err)
		close(s.booted)
		select {}
	}
	close(s.booted)

	led := s.h.LED()
	on := false
	var next uint64 = heartbeatTicks
	for {
		select {
		case <-s.done:
			select {}
		default:
		}
		ctx.WaitForInterrupt()
		if t := s.k.Ticks(); led != nil && t >= next {
			next = t + heartbeatTicks
			on = !on
			if on {
				led.High()
			} else {
				led.Low()
			}
		}
	}
}

// forwardTicks turns the HAL tick stream into SysTick interrupts.
func (s *System) forwardTicks() {
	ht := s.h.Time()
	if ht == nil {
		return
	}
	ch := ht.Ticks()
	if ch == nil {
		return
	}
	for {
		select {
		case <-s.done:
			return
		case <-ch:
			s.c.RaiseTick()
		}
	}
}

// Kernel returns the running kernel.
func (s *System) Kernel() *kernel.Kernel { return s.k }

// Name returns the scenario name of a task.
func (s *System) Name(id kernel.TaskID) string { return s.work.name(id) }

// Step redraws the display. It is called from the host's render loop.
func (s *System) Step() error {
	if s.fb == nil {
		return nil
	}
	snap := s.k.Snapshot()
	header(s.headerD, s.cfg.Scenario.Name, snap, kernel.InPanicMode())
	s.timeline.render(s.timeD, snap, s.work.name)
	s.pane.flush()
	if err := s.fb.Present(); err != nil && !errors.Is(err, hal.ErrNotImplemented) {
		return err
	}
	return nil
}

// Dump writes the scheduler state and a per-task name table to w.
func (s *System) Dump(w io.Writer) error {
	snap := s.k.Snapshot()
	if _, err := snap.WriteTo(w); err != nil {
		return err
	}
	for _, t := range snap.Tasks {
		if _, err := fmt.Fprintf(w, "task %d = %s\n", t.ID, s.work.name(t.ID)); err != nil {
			return err
		}
	}
	return nil
}

// Close stops tick delivery and parks the idle task the next time it runs.
func (s *System) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Run boots cfg and redraws forever (TinyGo entrypoint).
func Run(h hal.HAL, cfg Config) {
	s, err := Start(h, cfg)
	if err != nil {
		if l := h.Logger(); l != nil {
			l.WriteLineString(err.Error())
		}
		select {}
	}
	for {
		_ = s.Step()
		time.Sleep(100 * time.Millisecond)
	}
}
