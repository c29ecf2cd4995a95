package cpu

import (
	"testing"
	"time"
)

func TestStoreRestoreRoundTrip(t *testing.T) {
	c := New(Config{RAMBytes: 1024})
	_, top := c.RAM()
	c.SetPSP(top)
	for r := R4; r <= R11; r++ {
		c.regs[r] = uint32(0xA0 + r)
	}

	sp := c.StoreContext()
	if want := top - 8*WordBytes; sp != want {
		t.Fatalf("StoreContext() = %#x, want %#x", sp, want)
	}
	if got := c.ReadWord(sp); got != 0xA0+R4 {
		t.Fatalf("R4 slot = %#x, want %#x", got, 0xA0+R4)
	}

	for r := R4; r <= R11; r++ {
		c.regs[r] = 0
	}
	c.RestoreContext(sp)
	if c.PSP() != top {
		t.Fatalf("PSP() = %#x, want %#x", c.PSP(), top)
	}
	for r := R4; r <= R11; r++ {
		if got := c.Reg(r); got != uint32(0xA0+r) {
			t.Fatalf("Reg(%d) = %#x, want %#x", r, got, 0xA0+r)
		}
	}
}

func TestMaskDefersPendSV(t *testing.T) {
	c := New(Config{})
	_, top := c.RAM()
	c.SetPSP(top)

	calls := 0
	c.Attach(nil, func() { calls++ })

	if c.Masked() {
		t.Fatalf("Masked() = true on a fresh core")
	}
	c.DisableIRQ()
	c.DisableIRQ()
	c.PendService()
	c.EnableIRQ()
	if calls != 0 {
		t.Fatalf("PendSV ran with mask held, calls = %d", calls)
	}
	if !c.Masked() {
		t.Fatalf("Masked() = false with one level still held")
	}
	c.EnableIRQ()
	if c.Masked() {
		t.Fatalf("Masked() = true after releasing both levels")
	}
	if calls != 1 {
		t.Fatalf("PendSV calls = %d, want 1", calls)
	}
	if c.PSP() != top {
		t.Fatalf("PSP() = %#x after exception return, want %#x", c.PSP(), top)
	}
}

func TestVirtualTick(t *testing.T) {
	c := New(Config{CyclesPerTick: 3})
	_, top := c.RAM()
	c.SetPSP(top)

	ticks := 0
	c.Attach(func() { ticks++ }, nil)
	for i := 0; i < 9; i++ {
		c.Checkpoint()
	}
	if ticks != 3 {
		t.Fatalf("ticks = %d, want 3", ticks)
	}

	c.WaitForInterrupt()
	if ticks != 4 {
		t.Fatalf("ticks after WFI = %d, want 4", ticks)
	}
	if c.Cycles() != 12 {
		t.Fatalf("Cycles() = %d, want 12", c.Cycles())
	}
}

func TestRaiseTickWakesWFI(t *testing.T) {
	c := New(Config{})
	_, top := c.RAM()
	c.SetPSP(top)

	ticks := 0
	c.Attach(func() { ticks++ }, nil)

	go func() {
		time.Sleep(time.Millisecond)
		c.RaiseTick()
	}()

	done := make(chan struct{})
	go func() {
		c.WaitForInterrupt()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for WFI to return")
	}
	if ticks != 1 {
		t.Fatalf("ticks = %d, want 1", ticks)
	}
}

// buildFrame lays out an initial thread frame the way the kernel does.
func buildFrame(c *CPU, top, pc, arg uint32) uint32 {
	sp := top
	push := func(v uint32) {
		sp -= WordBytes
		c.WriteWord(sp, v)
	}
	push(XPSRThumb)
	push(pc)
	for i := 0; i < 14; i++ {
		if i == 5 {
			push(arg)
		} else {
			push(0x01)
		}
	}
	return sp
}

func TestSwitchToEntryAndBack(t *testing.T) {
	c := New(Config{RAMBytes: 2048})
	_, top := c.RAM()
	c.SetPSP(top)

	var mainSP uint32
	gotArg := make(chan uint32, 1)
	var frameSP uint32
	toThread := true

	c.Attach(nil, func() {
		if toThread {
			mainSP = c.StoreContext()
			c.RestoreContext(frameSP)
			return
		}
		c.StoreContext()
		c.RestoreContext(mainSP)
	})

	entry := c.EntryVector(func(arg uint32) {
		gotArg <- arg
		toThread = false
		c.PendService()
		select {}
	})
	frameSP = buildFrame(c, top-1024, entry, 0xC0FFEE)

	done := make(chan struct{})
	go func() {
		c.PendService()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("main thread was not resumed")
	}
	if arg := <-gotArg; arg != 0xC0FFEE {
		t.Fatalf("entry arg = %#x, want %#x", arg, 0xC0FFEE)
	}
	if c.PSP() != top {
		t.Fatalf("PSP() = %#x after resume, want %#x", c.PSP(), top)
	}
}
