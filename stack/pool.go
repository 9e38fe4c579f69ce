package stack

import (
	"fmt"

	"omibyte.io/rtkern/cpu"
)

// Pool is the emulator's fixed set of equally sized stacks. The free list is
// touched with interrupts masked.
type Pool struct {
	irq  cpu.IRQ
	size int
	free [][]cpu.Word
}

// NewPool creates count stacks of size bytes each.
func NewPool(irq cpu.IRQ, count, size, wordSize int) *Pool {
	p := &Pool{
		irq:  irq,
		size: size,
		free: make([][]cpu.Word, 0, count),
	}
	for i := 0; i < count; i++ {
		p.free = append(p.free, make([]cpu.Word, size/wordSize))
	}
	return p
}

// Acquire pops a stack from the pool. Size and buf are ignored: every pool
// stack has the configured size.
func (p *Pool) Acquire(_ int, _ []cpu.Word) (r Region, err error) {
	cpu.Atomic(p.irq, func() {
		n := len(p.free)
		if n == 0 {
			err = fmt.Errorf("%w: all stacks in use", ErrPoolEmpty)
			return
		}
		r = Region{
			Words:  p.free[n-1],
			Size:   p.size,
			Pooled: true,
		}
		p.free = p.free[:n-1]
	})
	return r, err
}

func (p *Pool) Release(r Region) {
	if !r.Pooled {
		return
	}
	cpu.Atomic(p.irq, func() {
		p.free = append(p.free, r.Words)
	})
}

// Available returns the number of free stacks.
func (p *Pool) Available() (n int) {
	cpu.Atomic(p.irq, func() {
		n = len(p.free)
	})
	return n
}
