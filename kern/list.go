package kern

// readyList is an intrusive FIFO of processes linked through their PCBs.
type readyList struct {
	head, tail *Process
	n          int
}

func (l *readyList) pushBack(p *Process) {
	p.next = nil
	p.prev = l.tail
	if l.tail != nil {
		l.tail.next = p
	} else {
		l.head = p
	}
	l.tail = p
	l.n++
}

func (l *readyList) popFront() *Process {
	p := l.head
	if p == nil {
		return nil
	}
	l.head = p.next
	if l.head != nil {
		l.head.prev = nil
	} else {
		l.tail = nil
	}
	p.next, p.prev = nil, nil
	l.n--
	return p
}

func (l *readyList) contains(p *Process) bool {
	for it := l.head; it != nil; it = it.next {
		if it == p {
			return true
		}
	}
	return false
}

func (l *readyList) len() int { return l.n }

// valid walks the list both ways and checks the links against the count.
func (l *readyList) valid() bool {
	n := 0
	var prev *Process
	for it := l.head; it != nil; it = it.next {
		if it.prev != prev || n > l.n {
			return false
		}
		prev = it
		n++
	}
	return n == l.n && prev == l.tail
}
