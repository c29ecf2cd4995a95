package kernel

import "rtk/internal/trace"

// Mutex is a binary, single-owner lock with priority inheritance. It must be
// initialised with Init before use and not copied afterwards.
//
// While a higher-priority task waits, the owner runs at that task's priority.
// Waiters are served in arrival order.
type Mutex struct {
	held             bool
	inherited        bool
	owner            TaskID
	originalPriority Priority
	waiters          taskList
}

// Init makes the mutex available.
func (m *Mutex) Init() {
	*m = Mutex{owner: noTask, originalPriority: PriorityNone}
}

// Owner returns the owning task, if any.
func (m *Mutex) Owner() (TaskID, bool) {
	if !m.held {
		return noTask, false
	}
	return m.owner, true
}

// Lock acquires m, blocking while another task owns it. Locking a mutex the
// caller already owns fails with ErrInvalidCall.
func (m *Mutex) Lock(ctx *Context) error {
	if ctx == nil {
		return ErrInvalidCall
	}
	k := ctx.k
	k.enter()

	cur := k.current
	if !m.held {
		m.held = true
		m.owner = cur
		m.originalPriority = k.currPriority
		k.tcbs[cur].held++
		k.exit()
		return nil
	}

	if m.owner == cur {
		k.logf("mutex: task %d cannot lock twice", cur)
		k.exit()
		return ErrInvalidCall
	}
	if cur == IdleID {
		k.logf("mutex: idle task cannot block")
		k.exit()
		return ErrInvalidCall
	}

	k.block(cur, &m.waiters)
	if p := k.tcbs[cur].priority; p > k.tcbs[m.owner].priority {
		// The owner moves to the waiter's level so it is scheduled ahead of
		// everything the waiter would have preempted.
		m.inherited = true
		k.setPriority(m.owner, p, false)
		k.traceEvent(trace.KindInherit, m.owner)
	}
	k.requestSwitch()
	// The switch happens here. Unlock hands ownership over before waking us.
	k.exit()
	return nil
}

// Unlock releases m. Only the owner may unlock. If the owner had inherited a
// higher priority it drops back to its own and yields immediately.
func (m *Mutex) Unlock(ctx *Context) error {
	if ctx == nil {
		return ErrInvalidCall
	}
	k := ctx.k
	k.enter()
	defer k.exit()

	cur := k.current
	if !m.held {
		k.logf("mutex: unlock of available mutex")
		return ErrInvalidCall
	}
	if m.owner != cur {
		k.logf("mutex: task %d does not own mutex, owner is %d", cur, m.owner)
		return ErrPermissionDenied
	}

	inherited := m.inherited
	original := m.originalPriority
	m.inherited = false
	k.tcbs[cur].held--

	if next, ok := m.waiters.pop(k.tcbs); ok {
		m.owner = next
		k.tcbs[next].held++
		m.originalPriority = k.tcbs[next].priority
		k.wake(next)
		if p, ok := m.topWaiterPriority(k); ok && p > k.tcbs[next].priority {
			m.inherited = true
			k.setPriority(next, p, false)
			k.traceEvent(trace.KindInherit, next)
		}
	} else {
		m.held = false
		m.owner = noTask
		m.originalPriority = PriorityNone
	}

	if inherited {
		// Back to the front of the original level: the task was running
		// there when it was boosted.
		k.setPriority(cur, original, true)
		k.currPriority = original
		k.changeState(cur, StateReady)
		k.traceEvent(trace.KindRestore, cur)
		k.requestSwitch()
	}
	return nil
}

func (m *Mutex) topWaiterPriority(k *Kernel) (Priority, bool) {
	if m.waiters.empty() {
		return PriorityNone, false
	}
	var top Priority
	id := m.waiters.head
	for i := 0; i < m.waiters.len(); i++ {
		if p := k.tcbs[id].priority; p > top {
			top = p
		}
		id = k.tcbs[id].next
	}
	return top, true
}
