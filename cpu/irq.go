package cpu

// Raise posts an interrupt. It may be called from any goroutine; the handler
// runs on the CPU with interrupts masked.
func (m *Machine) Raise(handler func()) {
	m.mu.Lock()
	m.pending = append(m.pending, handler)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Machine) Save() Flags {
	var flags Flags
	if m.masked {
		flags = flagMasked
	} else {
		m.window = 0
	}
	m.masked = true
	return flags
}

func (m *Machine) Restore(flags Flags) {
	if flags&flagMasked != 0 {
		m.masked = true
		return
	}
	m.Enable()
}

// Enable unmasks interrupts and takes the ones that became pending while
// they were masked.
func (m *Machine) Enable() {
	m.masked = false
	m.window = m.service()
}

func (m *Machine) Disable() {
	m.masked = true
	m.window = 0
}

func (m *Machine) Enabled() bool {
	return !m.masked
}

func (m *Machine) InInterrupt() bool {
	return m.inIRQ
}

// Idle returns once an interrupt has been taken. Interrupts taken by the
// Enable that opened the current window count, so one raised while the caller
// was still masked is never slept through.
func (m *Machine) Idle() {
	if m.window > 0 {
		m.window = 0
		return
	}
	for {
		if m.service() > 0 {
			return
		}
		<-m.wake
	}
}

// Barrier is a no-op: Idle synchronizes through the wake channel, which
// already orders every write made by a handler before the caller's next read.
func (m *Machine) Barrier() {}

func (m *Machine) Poll() {
	m.service()
}

// service runs pending handlers and returns how many ran.
func (m *Machine) service() (n int) {
	if m.masked || m.inIRQ {
		return 0
	}
	for {
		m.mu.Lock()
		if len(m.pending) == 0 {
			m.mu.Unlock()
			return n
		}
		handler := m.pending[0]
		m.pending = m.pending[1:]
		m.mu.Unlock()

		m.masked, m.inIRQ = true, true
		handler()
		m.masked, m.inIRQ = false, false
		n++
	}
}
