package stack

import (
	"fmt"

	"omibyte.io/rtkern/cpu"
)

// Static only accepts caller supplied buffers and never reclaims them.
type Static struct {
	wordSize int
}

func NewStatic(wordSize int) *Static {
	return &Static{wordSize: wordSize}
}

func (s *Static) Acquire(size int, buf []cpu.Word) (Region, error) {
	if buf == nil || size == 0 {
		return Region{}, fmt.Errorf("%w: static stacks need a buffer and a size", ErrContract)
	}
	if n := size / s.wordSize; n < len(buf) {
		buf = buf[:n]
	}
	return Region{Words: buf, Size: len(buf) * s.wordSize}, nil
}

func (s *Static) Release(Region) {}
