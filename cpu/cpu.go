package cpu

import "errors"

var (
	ErrStackOverflow = errors.New("stack pointer outside of the stack region")
	ErrCorruptFrame  = errors.New("initial stack frame is corrupt")
	ErrCodeSpace     = errors.New("no free code address")
)

// Flags is the saved interrupt state returned by IRQ.Save.
type Flags uint32

const flagMasked Flags = 1

// Context is a saved machine context: the stack it runs on plus whatever the
// switch primitive needs to resume it. It is only meaningful while the owner
// is not running.
type Context struct {
	Stack *Stack

	resume  chan bool
	started bool
}

// NewContext returns a context that has not run yet. Its first activation
// consumes the frame synthesized on s.
func NewContext(s *Stack) *Context {
	return &Context{
		Stack:  s,
		resume: make(chan bool),
	}
}

// Started reports whether the context has been switched into at least once.
func (c *Context) Started() bool { return c.started }

// Switcher saves and restores machine contexts.
type Switcher interface {
	// Switch saves the caller's context into save and resumes next. A nil save
	// means the caller is never resumed. Switch returns when some other
	// context switches back into save.
	Switch(next, save *Context)

	// CodeAddr returns the address of fn for use in a synthesized call frame.
	CodeAddr(fn func()) Word

	// Discard releases a context that will never be resumed.
	Discard(ctx *Context)

	// Adopt returns a context for the code running right now. It is filled
	// in by the first Switch away from it.
	Adopt() *Context
}

// IRQ is the interrupt controller.
type IRQ interface {
	// Save masks interrupts and returns the previous state.
	Save() Flags
	// Restore sets the interrupt state returned by a previous Save.
	Restore(Flags)
	Enable()
	Disable()
	Enabled() bool
	InInterrupt() bool

	// Idle waits for an interrupt. Interrupts must be enabled.
	Idle()
	// Barrier forces shared state to be read again after Idle.
	Barrier()
	// Poll takes pending interrupts if interrupts are enabled.
	Poll()
}

// CPU is everything the scheduler needs from a target.
type CPU interface {
	Switcher
	IRQ
	Arch() Arch
}

// Atomic runs fn with interrupts masked.
func Atomic(irq IRQ, fn func()) {
	flags := irq.Save()
	fn()
	irq.Restore(flags)
}
