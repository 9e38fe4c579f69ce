package cpu

import "unsafe"

// Word is one slot of an execution stack (cpustack_t). Targets narrower than
// the host store their value in the low bits.
type Word uintptr

const hostWordSize = int(unsafe.Sizeof(Word(0)))

// Arch describes the stack conventions of a target CPU.
type Arch struct {
	Name string

	// WordSize is the size in bytes of one stack slot.
	WordSize int

	// GrowsUp is set when pushes move the stack pointer to higher addresses.
	GrowsUp bool

	// SPOnEmptySlot is set when the stack pointer addresses the next free slot
	// instead of the last used one.
	SPOnEmptySlot bool

	// CallFrameWords is the number of slots a return address occupies.
	CallFrameWords int

	// SavedRegs is the number of register slots saved by the context switch.
	SavedRegs int

	// Alignment of the stack boundary in bytes.
	Alignment int
}

// RegInit returns the deterministic initial value of saved register i.
func (a Arch) RegInit(i int) Word {
	return Word(i) & a.wordMask()
}

// FrameWords returns the number of slots taken by a freshly synthesized frame.
func (a Arch) FrameWords() int {
	return 2*a.CallFrameWords + a.SavedRegs
}

// Words converts a size in bytes to a number of whole stack slots.
func (a Arch) Words(size int) int {
	return size / a.WordSize
}

// Trunc cuts w down to the width of one target word.
func (a Arch) Trunc(w Word) Word {
	return w & a.wordMask()
}

func (a Arch) wordBits() int {
	return a.WordSize * 8
}

func (a Arch) wordMask() Word {
	if a.WordSize >= hostWordSize {
		return ^Word(0)
	}
	return Word(1)<<a.wordBits() - 1
}

// Host is the architecture of the hosted machine: a full descending stack of
// native words, like most 32 and 64 bit targets.
var Host = Arch{
	Name:           "host",
	WordSize:       hostWordSize,
	GrowsUp:        false,
	SPOnEmptySlot:  false,
	CallFrameWords: 1,
	SavedRegs:      8,
	Alignment:      hostWordSize * 2,
}
