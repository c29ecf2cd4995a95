// Package cpu simulates the single-core Cortex-M execution environment the
// kernel runs on: word-addressed RAM, a process stack pointer, a register
// file, SysTick and PendSV exceptions, and PRIMASK-style interrupt masking.
//
// Every hardware thread is a goroutine. Exactly one goroutine holds the core
// at a time; the others are parked until an exception return resumes them.
// Interrupts are accepted at instruction boundaries (Checkpoint,
// WaitForInterrupt) and when the interrupt mask is released.
package cpu

import (
	"fmt"
	"sync/atomic"
)

// WordBytes is the size of one machine word.
const WordBytes = 4

const (
	// RAMBase is the address of the first RAM word.
	RAMBase uint32 = 0x2000_0000

	codeBase   uint32 = 0x0800_0000
	resumeBase uint32 = 0x0F00_0000
	vectorMask uint32 = 0x00FF_FFFF

	// XPSRThumb is the xPSR value with only the Thumb bit set.
	XPSRThumb       uint32 = 0x0100_0000
	excReturnThread uint32 = 0xFFFF_FFFD
)

// Register indexes into the register file.
const (
	R0  = 0
	R4  = 4
	R11 = 11
	R12 = 12
	LR  = 14
	PC  = 15
)

// Config describes the simulated part.
type Config struct {
	// RAMBytes is the size of RAM. Default 16 KiB.
	RAMBytes uint32
	// CyclesPerTick makes SysTick fire every N instruction boundaries.
	// Zero disables the virtual timer; ticks then come only from RaiseTick.
	CyclesPerTick uint32
}

type thread struct {
	id     uint32
	resume chan struct{}
}

// CPU is one simulated core.
type CPU struct {
	cfg Config
	ram []uint32

	psp  uint32
	regs [16]uint32
	xpsr uint32

	mask      int
	inHandler bool
	svPending bool

	tickPending atomic.Bool
	irq         chan struct{}

	cycles  uint64
	tickAcc uint32

	sysTick func()
	pendSV  func()
	entries []func(arg uint32)
	threads []*thread
	running *thread
}

// New returns a core whose current thread is the calling goroutine.
func New(cfg Config) *CPU {
	if cfg.RAMBytes == 0 {
		cfg.RAMBytes = 16 * 1024
	}
	cfg.RAMBytes &^= WordBytes - 1
	c := &CPU{
		cfg:  cfg,
		ram:  make([]uint32, cfg.RAMBytes/WordBytes),
		irq:  make(chan struct{}, 1),
		xpsr: XPSRThumb,
	}
	c.running = c.newThread()
	return c
}

// Attach installs the SysTick and PendSV handlers.
func (c *CPU) Attach(sysTick, pendSV func()) {
	c.sysTick = sysTick
	c.pendSV = pendSV
}

// RAM returns the lowest and one-past-highest RAM addresses.
func (c *CPU) RAM() (base, top uint32) {
	return RAMBase, RAMBase + uint32(len(c.ram))*WordBytes
}

// ReadWord loads the word at addr.
func (c *CPU) ReadWord(addr uint32) uint32 { return c.ram[c.index(addr)] }

// WriteWord stores v at addr.
func (c *CPU) WriteWord(addr, v uint32) { c.ram[c.index(addr)] = v }

func (c *CPU) index(addr uint32) int {
	if addr&(WordBytes-1) != 0 || addr < RAMBase {
		panic(fmt.Sprintf("cpu: hard fault: bad address %#08x", addr))
	}
	i := int((addr - RAMBase) / WordBytes)
	if i >= len(c.ram) {
		panic(fmt.Sprintf("cpu: hard fault: bad address %#08x", addr))
	}
	return i
}

// PSP returns the process stack pointer.
func (c *CPU) PSP() uint32 { return c.psp }

// SetPSP sets the process stack pointer.
func (c *CPU) SetPSP(sp uint32) { c.psp = sp }

// Reg returns register n of the register file.
func (c *CPU) Reg(n int) uint32 { return c.regs[n] }

// Cycles returns the number of instruction boundaries executed.
func (c *CPU) Cycles() uint64 { return c.cycles }

// EntryVector places fn in code memory and returns its address. Starting a
// thread at that address calls fn with R0 as its argument.
func (c *CPU) EntryVector(fn func(arg uint32)) uint32 {
	c.entries = append(c.entries, fn)
	return codeBase | uint32(len(c.entries)-1)<<1 | 1
}

func (c *CPU) newThread() *thread {
	t := &thread{id: uint32(len(c.threads)), resume: make(chan struct{}, 1)}
	c.threads = append(c.threads, t)
	return t
}

func (t *thread) vector() uint32 { return resumeBase | t.id<<1 | 1 }

// StoreContext pushes R4-R11 onto the process stack and returns the new
// stack pointer.
func (c *CPU) StoreContext() uint32 {
	sp := c.psp
	for r := R11; r >= R4; r-- {
		sp -= WordBytes
		c.WriteWord(sp, c.regs[r])
	}
	c.psp = sp
	return sp
}

// RestoreContext pops R4-R11 from sp and makes the remainder the process
// stack. The thread resumes on exception return.
func (c *CPU) RestoreContext(sp uint32) {
	for r := R4; r <= R11; r++ {
		c.regs[r] = c.ReadWord(sp)
		sp += WordBytes
	}
	c.psp = sp
}
