package kern

import (
	"github.com/sirupsen/logrus"
)

// Schedule gives the CPU to the process at the head of the ready queue,
// waiting for an interrupt to make one ready if the queue is empty. The caller
// must have put itself back on the queue if it wants to run again.
func (k *Kernel) Schedule() {
	k.assert(k.cpu.Enabled(), "schedule with interrupts disabled")
	k.assert(!k.cpu.InInterrupt(), "schedule from interrupt context")

	old := k.current

	flags := k.cpu.Save()
	k.assert(k.ready.valid(), "ready queue corrupt")
	next := k.ready.popFront()
	for next == nil {
		// Nothing to run. Let interrupts in and sleep until one of them
		// readies a process.
		k.cpu.Enable()
		k.cpu.Idle()
		k.cpu.Barrier()
		k.cpu.Disable()
		next = k.ready.popFront()
	}
	k.current = next
	if next != old && k.opts.Preemptive {
		// Fresh time slice for the incoming process.
		k.quantum = k.opts.Quantum
		k.preemptRq = false
	}
	k.cpu.Restore(flags)

	if next == old {
		return
	}

	if old != nil {
		k.log.WithFields(logrus.Fields{
			"from": old.name,
			"to":   next.name,
		}).Debug("switch")
		k.cpu.Switch(next.ctx, old.ctx)
	} else {
		k.log.WithField("to", next.name).Debug("switch from exited process")
		k.cpu.Switch(next.ctx, nil)
	}

	// Running again.
	k.reap()
}

// Yield puts the current process at the back of the ready queue and runs
// the next one.
func (k *Kernel) Yield() {
	p := k.current
	flags := k.cpu.Save()
	k.assert(!k.ready.contains(p), "current process already in the ready queue")
	k.ready.pushBack(p)
	k.cpu.Restore(flags)

	k.Schedule()
}

// Exit terminates the current process. Its stack is reclaimed by whichever
// process runs next, once it is no longer in use.
func (k *Kernel) Exit() {
	p := k.current
	k.assert(p != nil, "exit without a current process")
	k.assert(p != k.main, "main process cannot exit")

	if k.mon != nil {
		k.mon.Remove(p.id)
	}

	flags := k.cpu.Save()
	p.flags |= FlagZombie
	k.zombies = append(k.zombies, p)
	delete(k.procs, p.id)
	k.current = nil
	k.cpu.Restore(flags)

	k.log.WithField("proc", p.name).Debug("process exited")
	k.Schedule()

	k.assert(false, "exited process resumed")
}

// reap releases the stacks of exited processes. It only runs on a stack that
// is not among them.
func (k *Kernel) reap() {
	flags := k.cpu.Save()
	dead := k.zombies
	k.zombies = nil
	k.cpu.Restore(flags)

	for _, p := range dead {
		k.stacks.Release(p.region)
		p.region.Words = nil
		k.log.WithField("proc", p.name).Debug("process reclaimed")
	}
}
