package kernel

import "fmt"

// taskList is an intrusive FIFO of TCB indices. The zero value is empty.
// A TCB is a member of at most one list; its owner field records which.
type taskList struct {
	size uint8
	head TaskID
	tail TaskID
}

func (l *taskList) empty() bool { return l.size == 0 }

func (l *taskList) len() int { return int(l.size) }

func (l *taskList) front() (TaskID, bool) {
	if l.size == 0 {
		return noTask, false
	}
	return l.head, true
}

func (l *taskList) push(tcbs []tcb, id TaskID) {
	t := &tcbs[id]
	if t.owner != nil {
		panic(fmt.Sprintf("kernel: task %d pushed while queued", id))
	}
	t.owner = l
	t.next = noTask
	if l.size == 0 {
		l.head = id
	} else {
		tcbs[l.tail].next = id
	}
	l.tail = id
	l.size++
}

func (l *taskList) pushFront(tcbs []tcb, id TaskID) {
	t := &tcbs[id]
	if t.owner != nil {
		panic(fmt.Sprintf("kernel: task %d pushed while queued", id))
	}
	t.owner = l
	if l.size == 0 {
		t.next = noTask
		l.tail = id
	} else {
		t.next = l.head
	}
	l.head = id
	l.size++
}

// pop removes the head. An empty list yields (noTask, false).
func (l *taskList) pop(tcbs []tcb) (TaskID, bool) {
	if l.size == 0 {
		return noTask, false
	}
	id := l.head
	t := &tcbs[id]
	l.head = t.next
	l.size--
	if l.size == 0 {
		l.head, l.tail = noTask, noTask
	}
	t.next = noTask
	t.owner = nil
	return id, true
}

// remove unlinks id wherever it sits. It reports false if id is not in l.
func (l *taskList) remove(tcbs []tcb, id TaskID) bool {
	if tcbs[id].owner != l {
		return false
	}
	if l.head == id {
		l.pop(tcbs)
		return true
	}
	prev := l.head
	for tcbs[prev].next != id {
		prev = tcbs[prev].next
	}
	t := &tcbs[id]
	tcbs[prev].next = t.next
	if l.tail == id {
		l.tail = prev
	}
	l.size--
	t.next = noTask
	t.owner = nil
	return true
}

func (l *taskList) appendIDs(tcbs []tcb, dst []TaskID) []TaskID {
	id := l.head
	for i := 0; i < int(l.size); i++ {
		dst = append(dst, id)
		id = tcbs[id].next
	}
	return dst
}
