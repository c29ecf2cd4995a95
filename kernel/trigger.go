package kernel

import "rtk/internal/trace"

// sysTick is stage one of preemption. It runs on every timer tick, counts
// down the time slice and pends the deferred-service handler; it never
// switches stacks itself.
func (k *Kernel) sysTick() {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.ticks++
	k.countdown--

	if k.reschedule {
		k.reschedule = false
		k.countdown = k.cfg.TimeSlice
		k.port.PendService()
		return
	}

	if k.countdown == 0 {
		k.countdown = k.cfg.TimeSlice

		// Round robin: the running task goes to the back of its own level.
		cur := k.current
		t := &k.tcbs[cur]
		if t.state == StateRunning {
			k.changeState(cur, StateReady)
			l := &k.ready[t.priority]
			l.remove(k.tcbs, cur)
			l.push(k.tcbs, cur)
		}
		k.port.PendService()
	}
}

// pendSV is stage two: the lowest-priority handler that performs the switch
// once every other interrupt has drained.
func (k *Kernel) pendSV() {
	k.mu.Lock()

	prev := k.current
	next := k.findNextTask()
	if next == prev {
		k.tcbs[prev].state = StateRunning
		k.mu.Unlock()
		return
	}

	if k.tcbs[prev].state == StateRunning {
		k.tcbs[prev].state = StateReady
	}
	k.contextSwitch(prev, next)

	k.current = next
	k.changeState(next, StateRunning)
	k.currPriority = k.tcbs[next].priority
	k.switches++
	tick := k.ticks
	onSwitch := k.cfg.OnSwitch
	if k.cfg.Trace && k.cfg.Logger != nil {
		k.cfg.Logger.WriteLineString(trace.Format(trace.Event{
			Kind: trace.KindSwitch,
			From: uint8(prev),
			Task: uint8(next),
			Prio: uint8(k.currPriority),
			Tick: tick,
		}))
	}
	k.mu.Unlock()

	if onSwitch != nil {
		onSwitch(prev, next, tick)
	}
}

// requestSwitch pends the deferred-service handler directly. Callers hold
// the interrupt mask; the switch happens when they release it.
func (k *Kernel) requestSwitch() {
	k.reschedule = false
	k.countdown = k.cfg.TimeSlice
	k.port.PendService()
}
