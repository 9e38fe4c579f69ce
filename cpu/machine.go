package cpu

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

const codeBase Word = 0x10

// Machine is a hosted CPU. Every context runs on its own goroutine and only the
// goroutine holding the CPU executes; a switch hands the CPU over on the
// target's resume channel and parks the caller on its own.
//
// Interrupt handlers are posted with Raise and run on the CPU at the next
// interrupt window: when interrupts are re-enabled, while idling, or on Poll.
type Machine struct {
	arch Arch
	log  logrus.FieldLogger

	// Owned by whoever holds the CPU.
	masked bool
	inIRQ  bool
	window int

	mu       sync.Mutex
	pending  []func()
	code     map[Word]func()
	nextCode Word

	wake     chan struct{}
	switches atomic.Uint64
}

// NewMachine creates a hosted CPU with interrupts enabled.
func NewMachine(arch Arch, log logrus.FieldLogger) *Machine {
	return &Machine{
		arch:     arch,
		log:      log.WithField("component", "cpu"),
		code:     map[Word]func(){},
		nextCode: codeBase,
		wake:     make(chan struct{}, 1),
	}
}

func (m *Machine) Arch() Arch { return m.arch }

// Adopt returns a context for the calling goroutine, which becomes the code
// currently running on the CPU.
func (m *Machine) Adopt() *Context {
	return &Context{
		resume:  make(chan bool),
		started: true,
	}
}

// Switches returns the number of context switches performed.
func (m *Machine) Switches() uint64 {
	return m.switches.Load()
}

func (m *Machine) Switch(next, save *Context) {
	m.switches.Add(1)

	// save belongs to next once the CPU is handed over, and next may
	// Discard it.
	var park chan bool
	if save != nil {
		park = save.resume
	}

	if next.started {
		next.resume <- true
	} else {
		m.start(next)
	}

	if park == nil {
		// Nothing will ever switch back here.
		runtime.Goexit()
	}
	if ok := <-park; !ok {
		runtime.Goexit()
	}
}

func (m *Machine) Discard(ctx *Context) {
	if !ctx.started {
		// Release the code addresses held by the frame.
		m.popFrame(ctx)
		ctx.started = true
		ctx.resume = nil
		return
	}
	if ctx.resume != nil {
		close(ctx.resume)
		ctx.resume = nil
	}
}

func (m *Machine) CodeAddr(fn func()) Word {
	m.mu.Lock()
	defer m.mu.Unlock()

	limit := m.codeLimit()
	for i := Word(0); i < limit; i++ {
		addr := m.nextCode
		m.nextCode++
		if m.nextCode >= limit {
			m.nextCode = codeBase
		}
		if _, used := m.code[addr]; !used {
			m.code[addr] = fn
			return addr
		}
	}
	panic(ErrCodeSpace)
}

// codeLimit is the first address that no longer fits in a call frame.
func (m *Machine) codeLimit() Word {
	bits := m.arch.wordBits() * m.arch.CallFrameWords
	if bits >= 32 {
		return 1 << 31
	}
	return 1 << bits
}

func (m *Machine) lookup(addr Word) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn, ok := m.code[addr]
	if !ok {
		panic(ErrCorruptFrame)
	}
	delete(m.code, addr)
	return fn
}

// start consumes the frame synthesized on a fresh context and runs it. The
// frame holds the saved registers on top, then the entry return address, then
// the exit return address.
func (m *Machine) start(ctx *Context) {
	entry, exit := m.popFrame(ctx)
	ctx.started = true
	m.log.WithField("sp", ctx.Stack.SP).Debug("context started")

	go func() {
		entry()
		exit()
	}()
}

func (m *Machine) popFrame(ctx *Context) (entry, exit func()) {
	s := ctx.Stack
	for i := s.Arch.SavedRegs - 1; i >= 0; i-- {
		if s.PopWord() != s.Arch.RegInit(i) {
			panic(ErrCorruptFrame)
		}
	}
	entry = m.lookup(s.PopCallFrame())
	exit = m.lookup(s.PopCallFrame())
	return entry, exit
}
