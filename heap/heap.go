package heap

import (
	"errors"
	"fmt"
	"unsafe"

	"omibyte.io/rtkern/cpu"
)

var (
	ErrNoMemory    = errors.New("out of heap memory")
	ErrInvalidSize = errors.New("invalid allocation size")
	ErrBadFree     = errors.New("freeing memory not owned by the heap")
)

// Allocator is the allocation contract used for process stacks. Sizes are in
// bytes.
type Allocator interface {
	Alloc(size int) ([]cpu.Word, error)
	Free(buf []cpu.Word, size int)
}

type chunk struct {
	off int
	n   int
}

// Stats counts allocator activity.
type Stats struct {
	Allocs    int
	Frees     int
	FreeBytes int
}

// Heap is a first-fit allocator over a fixed arena of stack words. Free blocks
// are kept sorted by offset and merged with their neighbours on release.
//
// Heap is not safe for use from interrupt handlers.
type Heap struct {
	wordSize int
	arena    []cpu.Word
	free     []chunk
	stats    Stats
}

// New creates a heap of size bytes for a target with the given word size.
func New(size, wordSize int) *Heap {
	n := size / wordSize
	return &Heap{
		wordSize: wordSize,
		arena:    make([]cpu.Word, n),
		free:     []chunk{{off: 0, n: n}},
	}
}

func (h *Heap) words(size int) int {
	return (size + h.wordSize - 1) / h.wordSize
}

func (h *Heap) Alloc(size int) ([]cpu.Word, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	n := h.words(size)

	for i := range h.free {
		c := &h.free[i]
		if c.n < n {
			continue
		}

		buf := h.arena[c.off : c.off+n : c.off+n]
		c.off += n
		c.n -= n
		if c.n == 0 {
			h.free = append(h.free[:i], h.free[i+1:]...)
		}

		clear(buf)
		h.stats.Allocs++
		return buf, nil
	}
	return nil, fmt.Errorf("%w: %d bytes requested", ErrNoMemory, size)
}

func (h *Heap) Free(buf []cpu.Word, size int) {
	n := h.words(size)
	off := h.offset(buf)
	if off < 0 || n != len(buf) || off+n > len(h.arena) {
		panic(ErrBadFree)
	}

	// Find the insertion point
	i := 0
	for i < len(h.free) && h.free[i].off < off {
		i++
	}
	if i > 0 && h.free[i-1].off+h.free[i-1].n > off {
		panic(ErrBadFree)
	}
	if i < len(h.free) && off+n > h.free[i].off {
		panic(ErrBadFree)
	}

	h.free = append(h.free, chunk{})
	copy(h.free[i+1:], h.free[i:])
	h.free[i] = chunk{off: off, n: n}

	// Merge with the following block, then with the preceding one
	if i+1 < len(h.free) && off+n == h.free[i+1].off {
		h.free[i].n += h.free[i+1].n
		h.free = append(h.free[:i+1], h.free[i+2:]...)
	}
	if i > 0 && h.free[i-1].off+h.free[i-1].n == off {
		h.free[i-1].n += h.free[i].n
		h.free = append(h.free[:i], h.free[i+1:]...)
	}

	h.stats.Frees++
}

// offset returns the slot index of buf inside the arena, or -1.
func (h *Heap) offset(buf []cpu.Word) int {
	if len(buf) == 0 || len(h.arena) == 0 {
		return -1
	}
	base := uintptr(unsafe.Pointer(&h.arena[0]))
	p := uintptr(unsafe.Pointer(&buf[0]))
	if p < base {
		return -1
	}
	off := int((p - base) / unsafe.Sizeof(cpu.Word(0)))
	if off >= len(h.arena) {
		return -1
	}
	return off
}

// Stats returns allocation counters and the number of free bytes.
func (h *Heap) Stats() Stats {
	s := h.stats
	for _, c := range h.free {
		s.FreeBytes += c.n * h.wordSize
	}
	return s
}

// Size returns the arena size in bytes.
func (h *Heap) Size() int {
	return len(h.arena) * h.wordSize
}

// Fragments returns the number of free blocks.
func (h *Heap) Fragments() int {
	return len(h.free)
}
