package cpu

import "fmt"

// DisableIRQ masks interrupts. Masks nest.
func (c *CPU) DisableIRQ() { c.mask++ }

// EnableIRQ releases one level of masking and takes pending interrupts once
// the mask is clear.
func (c *CPU) EnableIRQ() {
	if c.mask == 0 {
		panic("cpu: EnableIRQ without DisableIRQ")
	}
	c.mask--
	c.deliver()
}

// Masked reports whether interrupts are masked.
func (c *CPU) Masked() bool { return c.mask > 0 }

// PendService sets PendSV pending. It is taken as soon as the core is in
// thread mode with interrupts unmasked.
func (c *CPU) PendService() {
	c.svPending = true
	c.deliver()
}

// RaiseTick sets SysTick pending from outside the core, e.g. from a host
// timer goroutine. Safe for concurrent use.
func (c *CPU) RaiseTick() {
	c.tickPending.Store(true)
	select {
	case c.irq <- struct{}{}:
	default:
	}
}

// Checkpoint executes one instruction boundary on the current thread.
func (c *CPU) Checkpoint() {
	c.cycles++
	if c.cfg.CyclesPerTick > 0 {
		c.tickAcc++
		if c.tickAcc >= c.cfg.CyclesPerTick {
			c.tickAcc = 0
			c.tickPending.Store(true)
		}
	}
	c.deliver()
}

// WaitForInterrupt sleeps until an interrupt is pending, then takes it.
// With a virtual timer the core skips ahead to the next tick.
func (c *CPU) WaitForInterrupt() {
	if c.cfg.CyclesPerTick > 0 {
		if !c.tickPending.Load() && !c.svPending {
			c.cycles += uint64(c.cfg.CyclesPerTick - c.tickAcc)
			c.tickAcc = 0
			c.tickPending.Store(true)
		}
	} else {
		for !c.tickPending.Load() && !c.svPending {
			<-c.irq
		}
	}
	c.deliver()
}

func (c *CPU) deliver() {
	if c.mask > 0 || c.inHandler {
		return
	}
	for {
		tick := c.tickPending.Swap(false)
		if !tick && !c.svPending {
			return
		}
		c.stackFrame()
		c.inHandler = true
		if tick && c.sysTick != nil {
			c.sysTick()
		}
		// PendSV tail-chains after SysTick.
		if c.svPending {
			c.svPending = false
			if c.pendSV != nil {
				c.pendSV()
			}
		}
		c.inHandler = false
		c.unstackFrame()
	}
}

// stackFrame performs exception entry: the caller-saved frame of the running
// thread is pushed onto its process stack.
func (c *CPU) stackFrame() {
	c.regs[PC] = c.running.vector()
	c.regs[LR] = excReturnThread
	sp := c.psp
	push := func(v uint32) {
		sp -= WordBytes
		c.WriteWord(sp, v)
	}
	push(c.xpsr)
	push(c.regs[PC])
	push(c.regs[LR])
	push(c.regs[R12])
	for r := 3; r >= R0; r-- {
		push(c.regs[r])
	}
	c.psp = sp
}

// unstackFrame performs exception return to thread mode. If the frame on the
// process stack belongs to another thread, control passes to it and the
// calling goroutine parks until it is resumed.
func (c *CPU) unstackFrame() {
	sp := c.psp
	for r := R0; r <= 3; r++ {
		c.regs[r] = c.ReadWord(sp)
		sp += WordBytes
	}
	c.regs[R12] = c.ReadWord(sp)
	c.regs[LR] = c.ReadWord(sp + 4)
	c.regs[PC] = c.ReadWord(sp + 8)
	c.xpsr = c.ReadWord(sp + 12)
	c.psp = sp + 16

	pc := c.regs[PC]
	self := c.running
	switch {
	case pc == self.vector():
		return
	case pc&^vectorMask == resumeBase:
		id := (pc & vectorMask) >> 1
		if int(id) >= len(c.threads) {
			panic(fmt.Sprintf("cpu: hard fault: bad resume vector %#08x", pc))
		}
		next := c.threads[id]
		c.running = next
		next.resume <- struct{}{}
	case pc&^vectorMask == codeBase:
		n := int((pc & vectorMask) >> 1)
		if n >= len(c.entries) {
			panic(fmt.Sprintf("cpu: hard fault: bad entry vector %#08x", pc))
		}
		next := c.newThread()
		c.running = next
		go c.start(c.entries[n], c.regs[R0])
	default:
		panic(fmt.Sprintf("cpu: hard fault: bad exception return pc=%#08x", pc))
	}
	<-self.resume
}

func (c *CPU) start(fn func(arg uint32), arg uint32) {
	fn(arg)
	panic("cpu: hard fault: thread returned")
}
