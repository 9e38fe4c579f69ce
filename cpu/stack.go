package cpu

// Stack is an execution stack region and the stack pointer into it. SP is a
// slot index whose meaning (last used or next free) follows Arch.
type Stack struct {
	Arch  Arch
	Words []Word
	SP    int
}

// PushWord pushes one raw machine word.
func (s *Stack) PushWord(w Word) {
	w &= s.Arch.wordMask()
	if s.Arch.SPOnEmptySlot {
		s.check(s.SP)
		s.Words[s.SP] = w
		s.SP += s.step()
		return
	}
	s.SP += s.step()
	s.check(s.SP)
	s.Words[s.SP] = w
}

// PopWord pops one raw machine word.
func (s *Stack) PopWord() Word {
	if s.Arch.SPOnEmptySlot {
		s.SP -= s.step()
		s.check(s.SP)
		return s.Words[s.SP]
	}
	s.check(s.SP)
	w := s.Words[s.SP]
	s.SP -= s.step()
	return w
}

// PushCallFrame pushes a return address, least significant word first.
func (s *Stack) PushCallFrame(addr Word) {
	bits := s.Arch.wordBits()
	for i := 0; i < s.Arch.CallFrameWords; i++ {
		s.PushWord(addr)
		if bits < hostWordSize*8 {
			addr >>= bits
		}
	}
}

// PopCallFrame pops a return address pushed by PushCallFrame.
func (s *Stack) PopCallFrame() Word {
	bits := s.Arch.wordBits()
	var addr Word
	for i := s.Arch.CallFrameWords - 1; i >= 0; i-- {
		w := s.PopWord()
		if i > 0 {
			addr |= w << (i * bits)
		} else {
			addr |= w
		}
	}
	return addr
}

// Depth returns the number of slots between the stack pointer and origin,
// the slot the stack pointer started from.
func (s *Stack) Depth(origin int) int {
	if s.Arch.GrowsUp {
		return s.SP - origin
	}
	return origin - s.SP
}

func (s *Stack) step() int {
	if s.Arch.GrowsUp {
		return 1
	}
	return -1
}

func (s *Stack) check(i int) {
	if i < 0 || i >= len(s.Words) {
		panic(ErrStackOverflow)
	}
}
