package kern

// Signal sends sigs to p and wakes it if it waits for any of them. It can be
// called from interrupt handlers.
func (k *Kernel) Signal(p *Process, sigs SigMask) {
	k.assert(k.opts.Signals, "signals not enabled")

	flags := k.cpu.Save()
	p.sigRecv |= sigs
	if p.sigWait&sigs != 0 {
		p.sigWait = 0
		k.ready.pushBack(p)
	}
	k.cpu.Restore(flags)
}

// Wait blocks the current process until one of the signals in mask arrives
// and returns the ones received, clearing them.
func (k *Kernel) Wait(mask SigMask) SigMask {
	k.assert(k.opts.Signals, "signals not enabled")
	p := k.current

	flags := k.cpu.Save()
	for p.sigRecv&mask == 0 {
		p.sigWait = mask
		k.cpu.Restore(flags)
		k.Schedule()
		flags = k.cpu.Save()
	}
	got := p.sigRecv & mask
	p.sigRecv &^= got
	k.cpu.Restore(flags)
	return got
}

// Check returns and clears the signals in mask that already arrived.
func (k *Kernel) Check(mask SigMask) SigMask {
	k.assert(k.opts.Signals, "signals not enabled")
	p := k.current

	flags := k.cpu.Save()
	got := p.sigRecv & mask
	p.sigRecv &^= got
	k.cpu.Restore(flags)
	return got
}
