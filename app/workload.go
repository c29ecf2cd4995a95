package app

import (
	"fmt"
	"sync"

	"rtk/hal"
	"rtk/internal/scenario"
	"rtk/kernel"
)

// workload runs a scenario's task programs as kernel tasks.
type workload struct {
	k   *kernel.Kernel
	sc  *scenario.Scenario
	log hal.Logger

	sems    map[string]*kernel.Semaphore
	mutexes map[string]*kernel.Mutex
	index   map[string]int

	mu      sync.Mutex
	names   map[kernel.TaskID]string
	spawned map[string]bool
}

func newWorkload(k *kernel.Kernel, sc *scenario.Scenario, log hal.Logger) *workload {
	w := &workload{
		k:       k,
		sc:      sc,
		log:     log,
		sems:    make(map[string]*kernel.Semaphore, len(sc.Semaphores)),
		mutexes: make(map[string]*kernel.Mutex, len(sc.Mutexes)),
		index:   make(map[string]int, len(sc.Tasks)),
		names:   map[kernel.TaskID]string{kernel.IdleID: "idle"},
		spawned: make(map[string]bool),
	}
	for _, s := range sc.Semaphores {
		sem := &kernel.Semaphore{}
		sem.Init(s.Count)
		w.sems[s.Name] = sem
	}
	for _, m := range sc.Mutexes {
		mu := &kernel.Mutex{}
		mu.Init()
		w.mutexes[m.Name] = mu
	}
	for i, t := range sc.Tasks {
		w.index[t.Name] = i
	}
	return w
}

// boot creates every task that is not deferred.
func (w *workload) boot() error {
	for i, t := range w.sc.Tasks {
		if t.Deferred {
			continue
		}
		if err := w.create(i); err != nil {
			return err
		}
	}
	return nil
}

func (w *workload) create(i int) error {
	t := &w.sc.Tasks[i]
	lvl, _ := scenario.PriorityLevel(t.Priority)

	w.mu.Lock()
	w.spawned[t.Name] = true
	w.mu.Unlock()

	// The argument is the task's index in the scenario.
	id, err := w.k.CreateTask(w.run, uint32(i), kernel.Priority(lvl))
	if err != nil {
		return fmt.Errorf("create %s: %w", t.Name, err)
	}

	w.mu.Lock()
	w.names[id] = t.Name
	w.mu.Unlock()
	return nil
}

// name returns the scenario name of a task.
func (w *workload) name(id kernel.TaskID) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if n, ok := w.names[id]; ok {
		return n
	}
	return fmt.Sprintf("task%d", id)
}

func (w *workload) run(ctx *kernel.Context, arg uint32) {
	t := &w.sc.Tasks[arg]
	for pass := 0; t.Repeat == 0 || pass < t.Repeat; pass++ {
		for _, op := range t.Program {
			w.step(ctx, t, op)
			ctx.Yield()
		}
	}
}

func (w *workload) step(ctx *kernel.Context, t *scenario.Task, op scenario.Op) {
	kind, arg := op.Kind()
	var err error
	switch kind {
	case scenario.OpWork:
		ctx.Spin(op.Work)
	case scenario.OpLend:
		err = w.sems[arg].Lend(ctx)
	case scenario.OpReturn:
		err = w.sems[arg].Return(ctx)
	case scenario.OpLock:
		err = w.mutexes[arg].Lock(ctx)
	case scenario.OpUnlock:
		err = w.mutexes[arg].Unlock(ctx)
	case scenario.OpLog:
		w.log.WriteLineString(t.Name + ": " + arg)
	case scenario.OpSpawn:
		err = w.spawn(arg)
	}
	if err != nil {
		w.log.WriteLineString(fmt.Sprintf("%s: %s %s: %s", t.Name, kind, arg, kernel.Describe(err)))
	}
}

// spawn creates a deferred task the first time it is asked for. Later passes
// of a repeating program leave it alone.
func (w *workload) spawn(name string) error {
	w.mu.Lock()
	done := w.spawned[name]
	w.mu.Unlock()
	if done {
		return nil
	}
	return w.create(w.index[name])
}
