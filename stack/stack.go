package stack

import (
	"errors"

	"omibyte.io/rtkern/cpu"
)

var (
	ErrPoolEmpty = errors.New("no free stack in the emulated pool")

	// ErrContract is returned when a caller breaks the provisioning contract,
	// as opposed to running out of memory.
	ErrContract = errors.New("stack provisioning contract violated")
)

// Region is a stack region handed out by a Provider. Size is the size in
// bytes the region was provisioned with.
type Region struct {
	Words []cpu.Word
	Size  int

	// Owned is set when the region came from the heap and must be freed.
	Owned bool

	// Pooled is set when the region returns to the emulated pool.
	Pooled bool
}

// Provider hands out process stacks. Acquire and Release are called from
// process context.
type Provider interface {
	// Acquire returns a region of at least size bytes, or buf itself when
	// the strategy accepts caller buffers.
	Acquire(size int, buf []cpu.Word) (Region, error)

	// Release gives back a region returned by Acquire. Regions the provider
	// does not own are ignored.
	Release(r Region)
}
