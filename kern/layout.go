package kern

import (
	"fmt"

	"omibyte.io/rtkern/cpu"
)

// Layout describes a process region: HeaderWords slots of header starting at
// Header, the stack in [StackLo, StackHi) and the initial stack pointer.
type Layout struct {
	Header      int
	HeaderWords int
	StackLo     int
	StackHi     int
	SP          int
}

// ComputeLayout places the header at the end of the region the stack grows
// away from, aligns the stack boundary and picks the initial stack pointer.
func ComputeLayout(words, headerBytes int, arch cpu.Arch) (Layout, error) {
	ws := arch.WordSize
	align := arch.Alignment
	if align < ws {
		align = ws
	}

	hw := (headerBytes + ws - 1) / ws
	l := Layout{HeaderWords: hw}

	if arch.GrowsUp {
		l.Header = 0
		l.StackLo = alignUp(hw*ws, align) / ws
		l.StackHi = words
		if arch.SPOnEmptySlot {
			l.SP = l.StackLo
		} else {
			l.SP = l.StackLo - 1
		}
	} else {
		if words < hw {
			return Layout{}, fmt.Errorf("%w: %d words, header needs %d", ErrStackTooSmall, words, hw)
		}
		l.Header = alignDown((words-hw)*ws, align) / ws
		l.StackLo = 0
		l.StackHi = l.Header
		if arch.SPOnEmptySlot {
			l.SP = l.Header - 1
		} else {
			l.SP = l.Header
		}
	}

	if free := l.StackHi - l.StackLo; free < arch.FrameWords() {
		return Layout{}, fmt.Errorf("%w: %d words of stack, frame needs %d", ErrStackTooSmall, free, arch.FrameWords())
	}
	return l, nil
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

func alignDown(n, align int) int {
	return n &^ (align - 1)
}
