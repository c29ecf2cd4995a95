package kernel

// tcb is a task control block. TCBs live in the kernel's arena and are
// referenced everywhere else by TaskID.
type tcb struct {
	id       TaskID
	priority Priority
	state    State

	stackBase  uint32
	sp         uint32
	stackLimit uint32

	next  TaskID
	owner *taskList

	// held counts the mutexes the task owns.
	held    int
	retired bool
}

const (
	initialXPSR     uint32 = 0x0100_0000
	regPlaceholder  uint32 = 0x01
	frameRegs              = 14
	frameArgSlot           = 5
	initialFrameLen        = 2 + frameRegs

	// entrySlot is the offset of the PC word below the stack base.
	entrySlot = 8
)

// push stores one word below the stack pointer.
func (k *Kernel) push(t *tcb, v uint32) error {
	t.sp -= 4
	if t.sp <= t.stackLimit {
		k.logf("kernel: stack overflow, task %d", t.id)
		return ErrStackOverflow
	}
	k.port.WriteWord(t.sp, v)
	return nil
}

// buildFrame synthesises the stack a task is first restored from: xPSR, the
// entry vector, then LR, R12, R3-R0 and R11-R4, with arg in R0. The entry
// word can be patched later through entrySlot.
func (k *Kernel) buildFrame(t *tcb, entry, arg uint32) error {
	t.sp = t.stackBase
	if err := k.push(t, initialXPSR); err != nil {
		return err
	}
	if err := k.push(t, entry); err != nil {
		return err
	}
	for i := 0; i < frameRegs; i++ {
		v := regPlaceholder
		if i == frameArgSlot {
			v = arg
		}
		if err := k.push(t, v); err != nil {
			return err
		}
	}
	return nil
}
