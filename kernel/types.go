package kernel

// TaskID identifies a task slot.
type TaskID uint8

// IdleID is the slot of the idle task.
const IdleID TaskID = 0

const noTask TaskID = 0xFF

// Priority is a scheduling level. Higher values run first.
type Priority uint8

const (
	PriorityNone Priority = iota
	PriorityLow
	PriorityMed
	PriorityHigh
)

// NumPriorities is the number of ready-queue levels.
const NumPriorities = 4

func (p Priority) String() string {
	switch p {
	case PriorityNone:
		return "none"
	case PriorityLow:
		return "low"
	case PriorityMed:
		return "med"
	case PriorityHigh:
		return "high"
	default:
		return "invalid"
	}
}

// State is a task lifecycle state.
type State uint8

const (
	StateInactive State = iota
	StateReady
	StateRunning
	StateBlocked
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateBlocked:
		return "blocked"
	default:
		return "invalid"
	}
}

// TaskFunc is a task entry point. It receives the task's context and the
// argument given to CreateTask.
type TaskFunc func(ctx *Context, arg uint32)

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
}

// Switcher is the context save/restore primitive.
//
// StoreContext saves the callee-saved registers of the running task onto its
// own stack and returns the resulting stack pointer. RestoreContext reloads
// that set from sp; the task resumes where its context was last stored.
type Switcher interface {
	StoreContext() uint32
	RestoreContext(sp uint32)
}

// Port is the execution environment the kernel runs on.
type Port interface {
	Switcher

	RAM() (base, top uint32)
	WriteWord(addr, v uint32)
	SetPSP(sp uint32)
	EntryVector(fn func(arg uint32)) uint32

	DisableIRQ()
	EnableIRQ()
	PendService()
	Checkpoint()
	WaitForInterrupt()

	Attach(sysTick, pendSV func())
}

// Config controls kernel sizing and diagnostics.
type Config struct {
	// MaxTasks is the number of task slots including idle. Default 6.
	MaxTasks int
	// StackBytes is the stack size of each slot. Default 1 KiB.
	StackBytes uint32
	// TimeSlice is the round-robin quantum in ticks. Default 1000.
	TimeSlice uint32

	// Logger receives error diagnostics and, with Trace, scheduler events.
	Logger Logger
	Trace  bool

	// OnSwitch is called from the deferred-service handler after every
	// context switch. It must not block or call into the kernel.
	OnSwitch func(from, to TaskID, tick uint64)
}

const (
	defaultMaxTasks   = 6
	defaultStackBytes = 1024
	defaultTimeSlice  = 1000
)

func (c *Config) setDefaults() {
	if c.MaxTasks <= 0 {
		c.MaxTasks = defaultMaxTasks
	}
	if c.MaxTasks > int(noTask) {
		c.MaxTasks = int(noTask)
	}
	if c.StackBytes == 0 {
		c.StackBytes = defaultStackBytes
	}
	c.StackBytes &^= 3
	if c.TimeSlice == 0 {
		c.TimeSlice = defaultTimeSlice
	}
}
