// Package kernel is a fixed-priority preemptive scheduler with round-robin
// time slicing, a counting semaphore and a priority-inheriting mutex.
//
// All scheduler state lives in one Kernel. State is mutated only with
// interrupts masked on the Port; a mutex additionally guards it against
// observers on other goroutines (see Snapshot).
package kernel

import (
	"fmt"
	"sync"

	"rtk/internal/trace"
)

// Kernel is the scheduler and synchronization engine.
type Kernel struct {
	mu   sync.Mutex
	port Port
	cfg  Config

	tcbs     []tcb
	nextSlot TaskID

	ready        [NumPriorities]taskList
	current      TaskID
	currPriority Priority

	reschedule bool
	countdown  uint32
	ticks      uint64
	switches   uint64
	started    bool
}

// New returns an uninitialised kernel running on port.
func New(port Port, cfg Config) *Kernel {
	cfg.setDefaults()
	k := &Kernel{
		port:     port,
		cfg:      cfg,
		tcbs:     make([]tcb, cfg.MaxTasks),
		nextSlot: IdleID + 1,
		current:  IdleID,
	}
	for i := range k.tcbs {
		k.tcbs[i] = tcb{id: TaskID(i), next: noTask}
	}
	return k
}

// Initialize lays out the task stacks, makes the calling thread the idle
// task, installs the tick and deferred-service handlers and enables
// interrupts. It must be called exactly once, before any task is created.
func (k *Kernel) Initialize() (*Context, error) {
	k.port.DisableIRQ()
	k.mu.Lock()
	if k.started {
		k.mu.Unlock()
		k.port.EnableIRQ()
		return nil, ErrInvalidCall
	}

	base, top := k.port.RAM()
	need := uint64(k.cfg.StackBytes) * uint64(k.cfg.MaxTasks)
	if uint64(top-base) < need {
		k.mu.Unlock()
		k.port.EnableIRQ()
		return nil, fmt.Errorf("kernel: %d stacks of %d bytes do not fit in RAM: %w",
			k.cfg.MaxTasks, k.cfg.StackBytes, ErrStackOverflow)
	}
	for i := range k.tcbs {
		t := &k.tcbs[i]
		t.stackBase = top - uint32(i)*k.cfg.StackBytes
		t.sp = t.stackBase
		t.stackLimit = t.stackBase - k.cfg.StackBytes
	}

	k.initScheduler()
	k.port.SetPSP(k.tcbs[IdleID].stackBase)
	k.port.Attach(k.sysTick, k.pendSV)
	k.started = true
	k.mu.Unlock()
	k.port.EnableIRQ()

	return &Context{k: k, taskID: IdleID}, nil
}

func (k *Kernel) initScheduler() {
	idle := &k.tcbs[IdleID]
	idle.priority = PriorityNone
	idle.state = StateRunning
	for i := range k.ready {
		k.ready[i] = taskList{}
	}
	k.ready[PriorityNone].push(k.tcbs, IdleID)
	k.current = IdleID
	k.currPriority = PriorityNone
	k.countdown = k.cfg.TimeSlice
}

// CreateTask places entry in the next free slot at the given priority and
// makes it Ready. It does not force a switch; a higher-priority task runs
// from the next tick.
func (k *Kernel) CreateTask(entry TaskFunc, arg uint32, prio Priority) (TaskID, error) {
	if entry == nil || prio >= NumPriorities {
		k.logf("kernel: invalid task entry or priority %d", prio)
		return noTask, ErrInvalidCall
	}

	k.enter()
	defer k.exit()

	if !k.started {
		k.logf("kernel: create before initialize")
		return noTask, ErrInvalidCall
	}
	if int(k.nextSlot) >= len(k.tcbs) {
		k.logf("kernel: no free task slot")
		return noTask, ErrNoTaskSlot
	}

	id := k.nextSlot
	t := &k.tcbs[id]
	if err := k.buildFrame(t, regPlaceholder, arg); err != nil {
		t.sp = t.stackBase
		return noTask, err
	}
	// Code is only placed once the frame fits.
	k.port.WriteWord(t.stackBase-entrySlot, k.port.EntryVector(k.trampoline(id, entry)))
	t.priority = prio
	k.nextSlot++

	k.changeState(id, StateReady)
	k.ready[prio].push(k.tcbs, id)
	k.traceEvent(trace.KindCreate, id)
	return id, nil
}

// trampoline is the code a task's first restore lands in.
func (k *Kernel) trampoline(id TaskID, entry TaskFunc) func(arg uint32) {
	return func(arg uint32) {
		ctx := &Context{k: k, taskID: id}
		k.run(ctx, entry, arg)
		k.retire(id)
	}
}

func (k *Kernel) run(ctx *Context, entry TaskFunc, arg uint32) {
	defer func() {
		if r := recover(); r != nil {
			triggerPanic(PanicInfo{TaskID: ctx.taskID, Value: r})
		}
	}()
	entry(ctx, arg)
}

// retire parks a task whose entry returned. It is never scheduled again.
func (k *Kernel) retire(id TaskID) {
	k.enter()
	t := &k.tcbs[id]
	if t.held > 0 {
		k.logf("kernel: task %d retired holding %d mutex(es)", id, t.held)
	}
	k.ready[t.priority].remove(k.tcbs, id)
	k.changeState(id, StateBlocked)
	t.retired = true
	k.traceEvent(trace.KindRetire, id)
	k.requestSwitch()
	k.exit()

	// Unreachable: nothing ever makes a retired task Ready.
	for {
		k.port.WaitForInterrupt()
	}
}

// changeState is the single gate for task state transitions. It raises the
// reschedule request when the transition demands one.
func (k *Kernel) changeState(id TaskID, to State) {
	t := &k.tcbs[id]
	from := t.state
	switch {
	case from == StateRunning && to == StateBlocked,
		from == StateBlocked && to == StateReady && t.priority > k.currPriority,
		from == StateInactive && to == StateReady && t.priority > k.currPriority:
		k.reschedule = true
	}
	t.state = to
}

// findNextTask returns the head of the highest non-empty ready level.
func (k *Kernel) findNextTask() TaskID {
	for p := NumPriorities - 1; p >= 0; p-- {
		if id, ok := k.ready[p].front(); ok {
			return id
		}
	}
	panic("kernel: no ready task")
}

// contextSwitch stores old's context and restores new's.
func (k *Kernel) contextSwitch(old, next TaskID) {
	k.tcbs[old].sp = k.port.StoreContext()
	k.port.RestoreContext(k.tcbs[next].sp)
}

// block moves the current task from its ready level to wait list l.
func (k *Kernel) block(id TaskID, l *taskList) {
	t := &k.tcbs[id]
	k.changeState(id, StateBlocked)
	k.ready[t.priority].remove(k.tcbs, id)
	l.push(k.tcbs, id)
	k.traceEvent(trace.KindBlock, id)
}

// wake makes a blocked task Ready at the tail of its level.
func (k *Kernel) wake(id TaskID) {
	k.changeState(id, StateReady)
	k.ready[k.tcbs[id].priority].push(k.tcbs, id)
	k.traceEvent(trace.KindWake, id)
}

// setPriority changes a task's priority, moving it between ready levels if
// it is queued on one.
func (k *Kernel) setPriority(id TaskID, p Priority, front bool) {
	t := &k.tcbs[id]
	queued := k.ready[t.priority].remove(k.tcbs, id)
	t.priority = p
	if !queued {
		return
	}
	if front {
		k.ready[p].pushFront(k.tcbs, id)
	} else {
		k.ready[p].push(k.tcbs, id)
	}
}

func (k *Kernel) enter() {
	k.port.DisableIRQ()
	k.mu.Lock()
}

func (k *Kernel) exit() {
	k.mu.Unlock()
	k.port.EnableIRQ()
}

func (k *Kernel) logf(format string, args ...any) {
	if k.cfg.Logger == nil {
		return
	}
	k.cfg.Logger.WriteLineString(fmt.Sprintf(format, args...))
}

func (k *Kernel) traceEvent(kind trace.Kind, id TaskID) {
	if !k.cfg.Trace || k.cfg.Logger == nil {
		return
	}
	k.cfg.Logger.WriteLineString(trace.Format(trace.Event{
		Kind: kind,
		Task: uint8(id),
		Prio: uint8(k.tcbs[id].priority),
		Tick: k.ticks,
	}))
}
