package stack

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"omibyte.io/rtkern/cpu"
	"omibyte.io/rtkern/heap"
)

func testIRQ() cpu.IRQ {
	log := logrus.New()
	log.Out = io.Discard
	return cpu.NewMachine(cpu.Host, log)
}

func TestPoolExhaustionAndReturn(t *testing.T) {
	p := NewPool(testIRQ(), 2, 256, 8)

	a, err := p.Acquire(0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Words) != 32 || !a.Pooled || a.Owned {
		t.Fatalf("unexpected region %d words, pooled=%v owned=%v", len(a.Words), a.Pooled, a.Owned)
	}
	if _, err = p.Acquire(0, nil); err != nil {
		t.Fatal(err)
	}
	if _, err = p.Acquire(0, nil); !errors.Is(err, ErrPoolEmpty) {
		t.Fatalf("expected ErrPoolEmpty, got %v", err)
	}

	p.Release(a)
	if got := p.Available(); got != 1 {
		t.Fatalf("Available() = %d, want 1", got)
	}
	b, err := p.Acquire(0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if &b.Words[0] != &a.Words[0] {
		t.Fatal("released stack was not handed out again")
	}
}

func TestPoolIgnoresForeignRegion(t *testing.T) {
	p := NewPool(testIRQ(), 1, 64, 8)
	p.Release(Region{Words: make([]cpu.Word, 8)})
	if got := p.Available(); got != 1 {
		t.Fatalf("Available() = %d, want 1", got)
	}
}

func TestHeapDefaultSize(t *testing.T) {
	alloc := heap.New(1024, 4)
	h := NewHeap(alloc, 4, 100)

	r, err := h.Acquire(0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Size != 100 || len(r.Words) != 25 || !r.Owned {
		t.Fatalf("unexpected region size=%d words=%d owned=%v", r.Size, len(r.Words), r.Owned)
	}

	h.Release(r)
	if s := alloc.Stats(); s.Allocs != 1 || s.Frees != 1 || s.FreeBytes != 1024 {
		t.Fatalf("unbalanced heap: %+v", s)
	}
}

func TestHeapCallerBuffer(t *testing.T) {
	alloc := heap.New(64, 4)
	h := NewHeap(alloc, 4, 32)

	buf := make([]cpu.Word, 10)
	r, err := h.Acquire(0, buf)
	if err != nil {
		t.Fatal(err)
	}
	if r.Owned || r.Size != 40 {
		t.Fatalf("caller buffer region owned=%v size=%d", r.Owned, r.Size)
	}
	h.Release(r)
	if s := alloc.Stats(); s.Allocs != 0 || s.Frees != 0 {
		t.Fatalf("caller buffer touched the heap: %+v", s)
	}
}

func TestHeapExhaustion(t *testing.T) {
	h := NewHeap(heap.New(64, 4), 4, 32)
	if _, err := h.Acquire(128, nil); !errors.Is(err, heap.ErrNoMemory) {
		t.Fatalf("expected heap.ErrNoMemory, got %v", err)
	}
}

func TestStatic(t *testing.T) {
	s := NewStatic(4)

	tests := []struct {
		name string
		size int
		buf  []cpu.Word
		err  error
		n    int
	}{
		{"buffer", 64, make([]cpu.Word, 16), nil, 16},
		{"truncated", 32, make([]cpu.Word, 16), nil, 8},
		{"no buffer", 64, nil, ErrContract, 0},
		{"no size", 0, make([]cpu.Word, 16), ErrContract, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, err := s.Acquire(tc.size, tc.buf)
			if !errors.Is(err, tc.err) {
				t.Fatalf("Acquire() error = %v, want %v", err, tc.err)
			}
			if len(r.Words) != tc.n {
				t.Fatalf("len(Words) = %d, want %d", len(r.Words), tc.n)
			}
		})
	}
}
