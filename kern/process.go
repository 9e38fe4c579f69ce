package kern

import (
	"omibyte.io/rtkern/cpu"
	"omibyte.io/rtkern/stack"
)

type Flags uint8

const (
	// FlagFreeStack marks a heap owned stack.
	FlagFreeStack Flags = 1 << iota

	// FlagPoolStack marks a stack borrowed from the emulated pool.
	FlagPoolStack

	// FlagZombie marks a terminated process awaiting reclamation.
	FlagZombie
)

// SigMask is a set of process signals.
type SigMask uint16

// headerMagic is written at the start of every process header.
const headerMagic cpu.Word = 0xC0DE

// Process is a process control block.
type Process struct {
	ctx      *cpu.Context
	region   stack.Region
	layout   Layout
	userData any
	flags    Flags

	forbidCnt int
	sigRecv   SigMask
	sigWait   SigMask

	name string
	id   uint32

	// Ready queue links.
	next, prev *Process
}

func (p *Process) Name() string  { return p.name }
func (p *Process) ID() uint32    { return p.id }
func (p *Process) UserData() any { return p.userData }
func (p *Process) Flags() Flags  { return p.flags }

// ForbidCount returns the preemption nesting depth.
func (p *Process) ForbidCount() int { return p.forbidCnt }

// Stack returns the saved stack of a process that is not running, or nil for
// a process adopted by Kernel.Init.
func (p *Process) Stack() *cpu.Stack {
	return p.ctx.Stack
}

// Layout returns where the header and the stack live in the process region.
func (p *Process) Layout() Layout {
	return p.layout
}

// StackWords returns the part of the region usable as stack.
func (p *Process) StackWords() []cpu.Word {
	if p.region.Words == nil {
		return nil
	}
	return p.region.Words[p.layout.StackLo:p.layout.StackHi]
}

// HeaderBytes returns the size of the process header kept in the stack
// region for the given target and features.
func HeaderBytes(arch cpu.Arch, opts Options) int {
	ws := arch.WordSize

	// Queue links, saved stack pointer, user data, flags and identity.
	n := 2*ws + ws + ws + 2 + 4
	if opts.Preemptive {
		n += 2
	}
	if opts.Signals {
		n += 4
	}
	if opts.Monitor {
		// Monitor links plus stack base and size.
		n += 4 * ws
	}
	return n
}
