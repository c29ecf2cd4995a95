package kernel

// Context provides task-local access to kernel operations.
type Context struct {
	k      *Kernel
	taskID TaskID
}

// TaskID returns the current task ID.
func (c *Context) TaskID() TaskID { return c.taskID }

// Kernel returns the kernel the task runs on.
func (c *Context) Kernel() *Kernel { return c.k }

// Priority returns the task's effective priority, including any inherited
// boost.
func (c *Context) Priority() Priority {
	c.k.mu.Lock()
	defer c.k.mu.Unlock()
	return c.k.tcbs[c.taskID].priority
}

// Yield executes one instruction boundary. Pending interrupts, and with them
// preemption, are taken here.
func (c *Context) Yield() {
	c.k.port.Checkpoint()
}

// WaitForInterrupt sleeps until the next interrupt has been taken.
func (c *Context) WaitForInterrupt() {
	c.k.port.WaitForInterrupt()
}

// Spin burns n ticks of processor time at instruction boundaries.
func (c *Context) Spin(n int) {
	for i := 0; i < n; i++ {
		c.k.port.WaitForInterrupt()
	}
}
