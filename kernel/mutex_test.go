package kernel

import (
	"errors"
	"reflect"
	"testing"
)

func TestMutexPriorityInheritance(t *testing.T) {
	log := &lineLog{}
	k, _, idle := boot(t, Config{Logger: log, Trace: true})

	var m Mutex
	m.Init()

	var events []string
	high := func(ctx *Context, _ uint32) {
		if err := m.Lock(ctx); err != nil {
			t.Errorf("high Lock() error = %v", err)
			return
		}
		events = append(events, "high locked")
		m.Unlock(ctx)
	}
	low := func(ctx *Context, _ uint32) {
		if err := m.Lock(ctx); err != nil {
			t.Errorf("low Lock() error = %v", err)
			return
		}
		events = append(events, "low locked")
		if _, err := ctx.Kernel().CreateTask(high, 0, PriorityHigh); err != nil {
			t.Errorf("CreateTask() error = %v", err)
			return
		}
		for ctx.Priority() != PriorityHigh {
			ctx.Yield()
		}
		events = append(events, "low boosted")
		if owner, _ := m.Owner(); owner != ctx.TaskID() {
			t.Errorf("Owner() = %d while boosted, want %d", owner, ctx.TaskID())
		}
		if err := m.Unlock(ctx); err != nil {
			t.Errorf("low Unlock() error = %v", err)
		}
		events = append(events, "low restored "+ctx.Priority().String())
	}
	k.CreateTask(low, 0, PriorityLow)

	idle.Yield()

	want := []string{"low locked", "low boosted", "high locked", "low restored low"}
	if !reflect.DeepEqual(events, want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	if _, held := m.Owner(); held {
		t.Fatalf("mutex still held after both tasks finished")
	}
	if info, _ := k.Task(1); info.Priority != PriorityLow {
		t.Fatalf("owner priority = %s after unlock, want low", info.Priority)
	}
	if !log.contains("sched: inherit task=1 prio=3") || !log.contains("sched: restore task=1 prio=1") {
		t.Fatalf("inheritance not traced: %v", log.lines)
	}
}

func TestMutexFIFOHandoff(t *testing.T) {
	k, _, idle := boot(t, Config{})

	var m Mutex
	m.Init()
	if err := m.Lock(idle); err != nil {
		t.Fatalf("idle Lock() error = %v", err)
	}

	var order []TaskID
	waiter := func(ctx *Context, _ uint32) {
		if err := m.Lock(ctx); err != nil {
			t.Errorf("Lock() error = %v", err)
			return
		}
		order = append(order, ctx.TaskID())
		m.Unlock(ctx)
	}
	for i := 0; i < 3; i++ {
		k.CreateTask(waiter, 0, PriorityMed)
	}

	idle.Yield()
	if len(order) != 0 {
		t.Fatalf("waiters ran while idle held the mutex: %v", order)
	}
	if p := idle.Priority(); p != PriorityMed {
		t.Fatalf("idle priority while owning = %s, want med", p)
	}

	// The handoff and the drop back to the idle level switch straight to the
	// first waiter; the rest follow in arrival order.
	if err := m.Unlock(idle); err != nil {
		t.Fatalf("idle Unlock() error = %v", err)
	}
	if want := []TaskID{1, 2, 3}; !reflect.DeepEqual(order, want) {
		t.Fatalf("lock order = %v, want %v", order, want)
	}
	if _, held := m.Owner(); held {
		t.Fatalf("mutex still held")
	}
	if p := idle.Priority(); p != PriorityNone {
		t.Fatalf("idle priority after unlock = %s, want none", p)
	}
}

func TestMutexErrors(t *testing.T) {
	log := &lineLog{}
	k, _, idle := boot(t, Config{Logger: log})

	var m Mutex
	m.Init()

	if err := m.Unlock(idle); !errors.Is(err, ErrInvalidCall) {
		t.Fatalf("Unlock() of available mutex error = %v, want ErrInvalidCall", err)
	}
	if err := m.Lock(idle); err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	if err := m.Lock(idle); !errors.Is(err, ErrInvalidCall) {
		t.Fatalf("second Lock() error = %v, want ErrInvalidCall", err)
	}
	if !log.contains("cannot lock twice") {
		t.Fatalf("double lock not logged: %v", log.lines)
	}

	var unlockErr error
	k.CreateTask(func(ctx *Context, _ uint32) {
		unlockErr = m.Unlock(ctx)
	}, 0, PriorityLow)
	idle.Yield()
	if !errors.Is(unlockErr, ErrPermissionDenied) {
		t.Fatalf("foreign Unlock() error = %v, want ErrPermissionDenied", unlockErr)
	}
	if owner, _ := m.Owner(); owner != IdleID {
		t.Fatalf("Owner() = %d after foreign unlock, want idle", owner)
	}

	if err := m.Unlock(idle); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if err := m.Lock(nil); !errors.Is(err, ErrInvalidCall) {
		t.Fatalf("Lock(nil) error = %v, want ErrInvalidCall", err)
	}
}

func TestRetireHoldingMutexIsLogged(t *testing.T) {
	log := &lineLog{}
	k, _, idle := boot(t, Config{Logger: log})

	var kept, released Mutex
	kept.Init()
	released.Init()

	k.CreateTask(func(ctx *Context, _ uint32) {
		released.Lock(ctx)
		released.Unlock(ctx)
	}, 0, PriorityMed)
	k.CreateTask(func(ctx *Context, _ uint32) {
		kept.Lock(ctx)
	}, 0, PriorityLow)

	idle.Yield()

	if !log.contains("kernel: task 2 retired holding 1 mutex(es)") {
		t.Fatalf("retirement with a held mutex not logged: %v", log.lines)
	}
	if log.contains("task 1 retired holding") {
		t.Fatalf("task 1 released its mutex but was reported: %v", log.lines)
	}
	if owner, ok := kept.Owner(); !ok || owner != 2 {
		t.Fatalf("Owner() = %d, %v, want 2, true", owner, ok)
	}
}
