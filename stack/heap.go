package stack

import (
	"fmt"

	"omibyte.io/rtkern/cpu"
	"omibyte.io/rtkern/heap"
)

// Heap allocates stacks from an allocator unless the caller supplies one.
type Heap struct {
	alloc       heap.Allocator
	wordSize    int
	defaultSize int
}

// NewHeap creates a heap provider. defaultSize is used for requests of size
// zero and should already include the process header.
func NewHeap(alloc heap.Allocator, wordSize, defaultSize int) *Heap {
	return &Heap{
		alloc:       alloc,
		wordSize:    wordSize,
		defaultSize: defaultSize,
	}
}

func (h *Heap) Acquire(size int, buf []cpu.Word) (Region, error) {
	if buf != nil {
		return Region{Words: buf, Size: len(buf) * h.wordSize}, nil
	}

	if size == 0 {
		size = h.defaultSize
	}
	words, err := h.alloc.Alloc(size)
	if err != nil {
		return Region{}, fmt.Errorf("could not allocate %d byte stack: %w", size, err)
	}
	return Region{
		Words: words,
		Size:  size,
		Owned: true,
	}, nil
}

func (h *Heap) Release(r Region) {
	if r.Owned {
		h.alloc.Free(r.Words, r.Size)
	}
}
