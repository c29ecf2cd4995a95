package kernel

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"rtk/cpu"
	"rtk/internal/trace"
)

type lineLog struct {
	mu    sync.Mutex
	lines []string
}

func (l *lineLog) WriteLineString(s string) {
	l.mu.Lock()
	l.lines = append(l.lines, s)
	l.mu.Unlock()
}

func (l *lineLog) contains(sub string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.lines {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// boot starts a kernel on a core that ticks on every instruction boundary.
// The test goroutine becomes the idle task.
func boot(t *testing.T, cfg Config) (*Kernel, *cpu.CPU, *Context) {
	t.Helper()
	c := cpu.New(cpu.Config{RAMBytes: 16 * 1024, CyclesPerTick: 1})
	if cfg.StackBytes == 0 {
		cfg.StackBytes = 512
	}
	k := New(c, cfg)
	idle, err := k.Initialize()
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return k, c, idle
}

func TestCreateTaskBeforeInitialize(t *testing.T) {
	k := New(cpu.New(cpu.Config{}), Config{})
	_, err := k.CreateTask(func(*Context, uint32) {}, 0, PriorityLow)
	if !errors.Is(err, ErrInvalidCall) {
		t.Fatalf("CreateTask() error = %v, want ErrInvalidCall", err)
	}
}

func TestInitializeTwice(t *testing.T) {
	k, _, _ := boot(t, Config{})
	if _, err := k.Initialize(); !errors.Is(err, ErrInvalidCall) {
		t.Fatalf("second Initialize() error = %v, want ErrInvalidCall", err)
	}
}

func TestInitializeStacksDoNotFit(t *testing.T) {
	k := New(cpu.New(cpu.Config{RAMBytes: 1024}), Config{MaxTasks: 4, StackBytes: 512})
	if _, err := k.Initialize(); !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("Initialize() error = %v, want ErrStackOverflow", err)
	}
}

func TestCreateTaskFrameLayout(t *testing.T) {
	k, c, _ := boot(t, Config{})
	id, err := k.CreateTask(func(*Context, uint32) {}, 0xCAFE, PriorityLow)
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	info, err := k.Task(id)
	if err != nil {
		t.Fatalf("Task(%d) error = %v", id, err)
	}
	if info.State != StateReady || info.Priority != PriorityLow {
		t.Fatalf("Task() = %s/%s, want ready/low", info.State, info.Priority)
	}

	base := info.StackBase
	if want := base - initialFrameLen*4; info.StackPointer != want {
		t.Fatalf("StackPointer = %#x, want %#x", info.StackPointer, want)
	}
	if got := c.ReadWord(base - 4); got != initialXPSR {
		t.Fatalf("xPSR slot = %#x, want %#x", got, initialXPSR)
	}
	if pc := c.ReadWord(base - 8); pc&1 != 1 || pc>>24 != 0x08 {
		t.Fatalf("entry slot = %#x, want an odd code address", pc)
	}
	// R0 sits at the bottom of the hardware frame, below LR, R12 and R3-R1.
	if got := c.ReadWord(base - 32); got != 0xCAFE {
		t.Fatalf("R0 slot = %#x, want 0xcafe", got)
	}
	for addr := info.StackPointer; addr < base-32; addr += 4 {
		if got := c.ReadWord(addr); got != regPlaceholder {
			t.Fatalf("word at %#x = %#x, want placeholder", addr, got)
		}
	}
}

func TestCreateTaskStackOverflow(t *testing.T) {
	log := &lineLog{}
	k, _, _ := boot(t, Config{StackBytes: 32, Logger: log})

	_, err := k.CreateTask(func(*Context, uint32) {}, 0, PriorityHigh)
	if !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("CreateTask() error = %v, want ErrStackOverflow", err)
	}
	if _, err := k.Task(1); !errors.Is(err, ErrEmptyElement) {
		t.Fatalf("Task(1) error = %v, want ErrEmptyElement", err)
	}
	s := k.Snapshot()
	if len(s.Ready[PriorityHigh]) != 0 {
		t.Fatalf("ready[high] = %v, want empty", s.Ready[PriorityHigh])
	}
	if !log.contains("stack overflow") {
		t.Fatalf("overflow was not logged: %v", log.lines)
	}
}

type vectorCounter struct {
	*cpu.CPU
	vectors int
}

func (p *vectorCounter) EntryVector(fn func(arg uint32)) uint32 {
	p.vectors++
	return p.CPU.EntryVector(fn)
}

func TestCreateTaskOverflowPlacesNoCode(t *testing.T) {
	port := &vectorCounter{CPU: cpu.New(cpu.Config{RAMBytes: 16 * 1024, CyclesPerTick: 1})}
	k := New(port, Config{StackBytes: 32})
	if _, err := k.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if _, err := k.CreateTask(func(*Context, uint32) {}, 0, PriorityLow); !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("CreateTask() error = %v, want ErrStackOverflow", err)
	}
	if port.vectors != 0 {
		t.Fatalf("EntryVector() called %d times for a task that does not fit", port.vectors)
	}
}

func TestCreateTaskInvalid(t *testing.T) {
	k, _, _ := boot(t, Config{MaxTasks: 2})
	if _, err := k.CreateTask(nil, 0, PriorityLow); !errors.Is(err, ErrInvalidCall) {
		t.Fatalf("CreateTask(nil) error = %v, want ErrInvalidCall", err)
	}
	if _, err := k.CreateTask(func(*Context, uint32) {}, 0, NumPriorities); !errors.Is(err, ErrInvalidCall) {
		t.Fatalf("CreateTask(bad priority) error = %v, want ErrInvalidCall", err)
	}
	if _, err := k.CreateTask(func(*Context, uint32) {}, 0, PriorityLow); err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if _, err := k.CreateTask(func(*Context, uint32) {}, 0, PriorityLow); !errors.Is(err, ErrNoTaskSlot) {
		t.Fatalf("CreateTask() on full pool error = %v, want ErrNoTaskSlot", err)
	}
}

func TestRoundRobinEqualPriority(t *testing.T) {
	k, _, idle := boot(t, Config{TimeSlice: 2})

	var order []TaskID
	work := func(ctx *Context, _ uint32) {
		for i := 0; i < 6; i++ {
			order = append(order, ctx.TaskID())
			ctx.Yield()
		}
	}
	for i := 0; i < 3; i++ {
		if _, err := k.CreateTask(work, 0, PriorityHigh); err != nil {
			t.Fatalf("CreateTask() error = %v", err)
		}
	}

	idle.Yield()

	var want []TaskID
	for round := 0; round < 3; round++ {
		want = append(want, 1, 1, 2, 2, 3, 3)
	}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("run order = %v, want %v", order, want)
	}
	for id := TaskID(1); id <= 3; id++ {
		info, _ := k.Task(id)
		if !info.Retired || info.State != StateBlocked {
			t.Fatalf("task %d = %s retired=%v, want blocked and retired", id, info.State, info.Retired)
		}
	}
	if s := k.Snapshot(); s.Current != IdleID || s.Ready[PriorityHigh] != nil {
		t.Fatalf("after run current=%d ready[high]=%v, want idle and empty", s.Current, s.Ready[PriorityHigh])
	}
}

func TestHigherPriorityRunsFirst(t *testing.T) {
	k, _, idle := boot(t, Config{TimeSlice: 3})

	var order []string
	low := func(ctx *Context, _ uint32) {
		for i := 0; i < 2; i++ {
			order = append(order, "low")
			ctx.Yield()
		}
	}
	high := func(ctx *Context, _ uint32) {
		for i := 0; i < 2; i++ {
			order = append(order, "high")
			ctx.Yield()
		}
	}
	k.CreateTask(low, 0, PriorityLow)
	k.CreateTask(high, 0, PriorityHigh)

	idle.Yield()

	want := []string{"high", "high", "low", "low"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("run order = %v, want %v", order, want)
	}
}

func TestPreemptionByNewTask(t *testing.T) {
	k, _, idle := boot(t, Config{})

	var order []string
	high := func(ctx *Context, _ uint32) {
		order = append(order, "high")
	}
	low := func(ctx *Context, _ uint32) {
		order = append(order, "low start")
		if _, err := ctx.Kernel().CreateTask(high, 0, PriorityHigh); err != nil {
			t.Errorf("CreateTask() error = %v", err)
		}
		// The high task takes over at the next tick.
		ctx.Yield()
		order = append(order, "low end")
	}
	k.CreateTask(low, 0, PriorityLow)

	idle.Yield()

	want := []string{"low start", "high", "low end"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("run order = %v, want %v", order, want)
	}
}

func TestTaskPanicRetiresTask(t *testing.T) {
	var got []PanicInfo
	SetPanicHandler(func(info PanicInfo) { got = append(got, info) })
	defer SetPanicHandler(nil)

	k, _, idle := boot(t, Config{})
	ran := false
	k.CreateTask(func(*Context, uint32) { panic("boom") }, 0, PriorityMed)
	k.CreateTask(func(*Context, uint32) { ran = true }, 0, PriorityLow)

	idle.Yield()

	if len(got) != 1 || got[0].TaskID != 1 || got[0].Value != "boom" {
		t.Fatalf("panics = %+v, want one from task 1", got)
	}
	if !InPanicMode() {
		t.Fatalf("InPanicMode() = false after a task panic")
	}
	if !ran {
		t.Fatalf("low task did not run after the panicking task retired")
	}
	if info, _ := k.Task(1); !info.Retired {
		t.Fatalf("panicking task not retired")
	}
}

func TestTraceLines(t *testing.T) {
	log := &lineLog{}
	k, _, idle := boot(t, Config{Logger: log, Trace: true})

	var switches [][2]TaskID
	k.cfg.OnSwitch = func(from, to TaskID, _ uint64) {
		switches = append(switches, [2]TaskID{from, to})
	}
	k.CreateTask(func(*Context, uint32) {}, 0, PriorityMed)
	idle.Yield()

	want := [][2]TaskID{{0, 1}, {1, 0}}
	if !reflect.DeepEqual(switches, want) {
		t.Fatalf("switches = %v, want %v", switches, want)
	}

	var kinds []trace.Kind
	for _, line := range log.lines {
		ev, ok := trace.Parse(line)
		if !ok {
			t.Fatalf("Parse(%q) failed", line)
		}
		kinds = append(kinds, ev.Kind)
	}
	wantKinds := []trace.Kind{trace.KindCreate, trace.KindSwitch, trace.KindRetire, trace.KindSwitch}
	if !reflect.DeepEqual(kinds, wantKinds) {
		t.Fatalf("trace kinds = %v, want %v", kinds, wantKinds)
	}
}
