package kern

// Forbid disables preemption of the current process. Calls nest.
func (k *Kernel) Forbid() {
	if !k.opts.Preemptive {
		return
	}
	k.current.forbidCnt++
}

// Permit undoes one Forbid. Dropping to zero is a preemption point.
func (k *Kernel) Permit() {
	if !k.opts.Preemptive {
		return
	}
	p := k.current
	p.forbidCnt--
	k.assert(p.forbidCnt >= 0, "permit without forbid")
	if p.forbidCnt == 0 {
		k.PreemptPoint()
	}
}

// Tick advances kernel time by one timer period. It is meant to run as an
// interrupt handler. Once the quantum of the current process is used up a
// preemption is requested, and it stays requested while preemption is
// forbidden.
func (k *Kernel) Tick() {
	k.assert(k.cpu.InInterrupt(), "tick outside interrupt context")

	k.ticks++
	if !k.opts.Preemptive {
		return
	}
	if k.quantum > 0 {
		k.quantum--
	}
	if k.quantum == 0 && k.current != nil {
		k.preemptRq = true
	}
}

// PreemptPoint takes pending interrupts and, if a preemption was requested
// and the current process allows it, moves it to the back of the ready queue
// and schedules. Inside a masked section or a handler it only polls.
func (k *Kernel) PreemptPoint() {
	if !k.opts.Preemptive {
		k.cpu.Poll()
		return
	}
	k.cpu.Poll()
	if !k.cpu.Enabled() || k.cpu.InInterrupt() {
		// Cannot switch here. The request stays pending for the next point.
		return
	}

	p := k.current
	flags := k.cpu.Save()
	preempt := k.preemptRq && p.forbidCnt == 0
	if preempt {
		k.preemptRq = false
		k.ready.pushBack(p)
	}
	k.cpu.Restore(flags)

	if preempt {
		k.log.WithField("proc", p.name).Debug("preempted")
		k.Schedule()
	}
}
