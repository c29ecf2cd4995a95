package kernel

// Semaphore is a counting semaphore with FIFO release order. It must be
// initialised with Init before use and not copied afterwards.
type Semaphore struct {
	count   uint32
	waiters taskList
}

// Init sets the count and empties the wait list.
func (s *Semaphore) Init(count uint32) {
	s.count = count
	s.waiters = taskList{}
}

// Count returns the number of units available.
func (s *Semaphore) Count() uint32 { return s.count }

// Waiting returns the number of tasks blocked on s.
func (s *Semaphore) Waiting() int { return s.waiters.len() }

// Lend takes one unit, blocking the calling task until one is available.
// Blocked tasks are served in arrival order.
func (s *Semaphore) Lend(ctx *Context) error {
	if ctx == nil {
		return ErrInvalidCall
	}
	k := ctx.k
	k.enter()

	if s.count > 0 {
		s.count--
		k.exit()
		return nil
	}

	cur := k.current
	if cur == IdleID {
		k.logf("semaphore: idle task cannot block")
		k.exit()
		return ErrInvalidCall
	}
	k.block(cur, &s.waiters)
	k.requestSwitch()
	// The switch happens here. Return hands the unit over before waking us.
	k.exit()
	return nil
}

// Return gives one unit back. If a task is waiting the unit goes straight
// to the longest waiter, which becomes Ready.
func (s *Semaphore) Return(ctx *Context) error {
	if ctx == nil {
		return ErrInvalidCall
	}
	k := ctx.k
	k.enter()
	defer k.exit()

	if id, ok := s.waiters.pop(k.tcbs); ok {
		k.wake(id)
		return nil
	}
	s.count++
	return nil
}
