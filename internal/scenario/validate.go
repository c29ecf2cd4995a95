package scenario

import (
	"errors"
	"fmt"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("scenario: invalid")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}

// Validate checks names, references and program steps.
func (s *Scenario) Validate() error {
	if len(s.Tasks) == 0 {
		return invalidf("no tasks")
	}

	sems := make(map[string]bool, len(s.Semaphores))
	for _, sem := range s.Semaphores {
		if sem.Name == "" {
			return invalidf("semaphore without a name")
		}
		if sems[sem.Name] {
			return invalidf("duplicate semaphore %q", sem.Name)
		}
		sems[sem.Name] = true
	}
	mutexes := make(map[string]bool, len(s.Mutexes))
	for _, m := range s.Mutexes {
		if m.Name == "" {
			return invalidf("mutex without a name")
		}
		if mutexes[m.Name] {
			return invalidf("duplicate mutex %q", m.Name)
		}
		mutexes[m.Name] = true
	}

	tasks := make(map[string]*Task, len(s.Tasks))
	for i := range s.Tasks {
		t := &s.Tasks[i]
		if t.Name == "" {
			return invalidf("task %d has no name", i)
		}
		if tasks[t.Name] != nil {
			return invalidf("duplicate task %q", t.Name)
		}
		if _, ok := PriorityLevel(t.Priority); !ok {
			return invalidf("task %q: unknown priority %q", t.Name, t.Priority)
		}
		if t.Repeat < 0 {
			return invalidf("task %q: negative repeat", t.Name)
		}
		if len(t.Program) == 0 {
			return invalidf("task %q: empty program", t.Name)
		}
		tasks[t.Name] = t
	}

	spawned := make(map[string]bool)
	for _, t := range s.Tasks {
		for j, op := range t.Program {
			kind, arg := op.Kind()
			switch kind {
			case OpInvalid:
				return invalidf("task %q step %d: need exactly one action", t.Name, j)
			case OpWork:
				if op.Work < 0 {
					return invalidf("task %q step %d: negative work", t.Name, j)
				}
			case OpLend, OpReturn:
				if !sems[arg] {
					return invalidf("task %q step %d: unknown semaphore %q", t.Name, j, arg)
				}
			case OpLock, OpUnlock:
				if !mutexes[arg] {
					return invalidf("task %q step %d: unknown mutex %q", t.Name, j, arg)
				}
			case OpSpawn:
				target := tasks[arg]
				if target == nil {
					return invalidf("task %q step %d: unknown task %q", t.Name, j, arg)
				}
				if !target.Deferred {
					return invalidf("task %q step %d: %q is created at boot", t.Name, j, arg)
				}
				if spawned[arg] {
					return invalidf("task %q step %d: %q is spawned twice", t.Name, j, arg)
				}
				spawned[arg] = true
			}
		}
	}
	for _, t := range s.Tasks {
		if t.Deferred && !spawned[t.Name] {
			return invalidf("deferred task %q is never spawned", t.Name)
		}
	}
	return nil
}

// CheckCapacity reports whether the scenario's tasks fit in a kernel with
// slots task slots, one of which is the idle task.
func (s *Scenario) CheckCapacity(slots int) error {
	if n := len(s.Tasks); n > slots-1 {
		return invalidf("%d tasks do not fit in %d slots", n, slots)
	}
	return nil
}
