package kernel

import (
	"fmt"
	"io"
	"strings"

	"github.com/inhies/go-bytesize"
)

// TaskInfo is a point-in-time view of one task slot.
type TaskInfo struct {
	ID           TaskID
	Priority     Priority
	State        State
	StackBase    uint32
	StackPointer uint32
	StackLimit   uint32
	Retired      bool
}

// StackUsed returns the bytes between the stack base and the saved pointer.
func (t TaskInfo) StackUsed() uint32 {
	return t.StackBase - t.StackPointer
}

// StackSize returns the size of the task's stack region.
func (t TaskInfo) StackSize() uint32 {
	return t.StackBase - t.StackLimit
}

// Snapshot is a consistent copy of the scheduler state.
type Snapshot struct {
	Current         TaskID
	CurrentPriority Priority
	Ticks           uint64
	Switches        uint64
	Reschedule      bool
	Tasks           []TaskInfo
	Ready           [NumPriorities][]TaskID
}

// Snapshot copies the scheduler state. It is safe to call from any
// goroutine.
func (k *Kernel) Snapshot() Snapshot {
	k.mu.Lock()
	defer k.mu.Unlock()

	s := Snapshot{
		Current:         k.current,
		CurrentPriority: k.currPriority,
		Ticks:           k.ticks,
		Switches:        k.switches,
		Reschedule:      k.reschedule,
	}
	for i := TaskID(0); i < k.nextSlot && int(i) < len(k.tcbs); i++ {
		s.Tasks = append(s.Tasks, k.taskInfo(i))
	}
	for p := range k.ready {
		s.Ready[p] = k.ready[p].appendIDs(k.tcbs, nil)
	}
	return s
}

// Task returns the state of one task. Unallocated slots report
// ErrEmptyElement.
func (k *Kernel) Task(id TaskID) (TaskInfo, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if int(id) >= len(k.tcbs) || id >= k.nextSlot || !k.started {
		return TaskInfo{}, ErrEmptyElement
	}
	if k.tcbs[id].state == StateInactive {
		return TaskInfo{}, ErrEmptyElement
	}
	return k.taskInfo(id), nil
}

// Ticks returns the number of timer ticks handled since Initialize.
func (k *Kernel) Ticks() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.ticks
}

func (k *Kernel) taskInfo(id TaskID) TaskInfo {
	t := &k.tcbs[id]
	return TaskInfo{
		ID:           t.id,
		Priority:     t.priority,
		State:        t.state,
		StackBase:    t.stackBase,
		StackPointer: t.sp,
		StackLimit:   t.stackLimit,
		Retired:      t.retired,
	}
}

// WriteTo writes a task table and the ready levels in text form.
func (s Snapshot) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "current=%d prio=%s ticks=%d switches=%d\n",
		s.Current, s.CurrentPriority, s.Ticks, s.Switches)
	fmt.Fprintf(&b, "%-4s %-5s %-8s %-10s %-10s %s\n", "ID", "PRIO", "STATE", "SP", "BASE", "USED")
	for _, t := range s.Tasks {
		state := t.State.String()
		if t.Retired {
			state = "retired"
		}
		fmt.Fprintf(&b, "%-4d %-5s %-8s %#08x %#08x %s/%s\n",
			t.ID, t.Priority, state, t.StackPointer, t.StackBase,
			bytesize.New(float64(t.StackUsed())), bytesize.New(float64(t.StackSize())))
	}
	for p := NumPriorities - 1; p >= 0; p-- {
		fmt.Fprintf(&b, "ready[%s]=%v\n", Priority(p), s.Ready[p])
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}
