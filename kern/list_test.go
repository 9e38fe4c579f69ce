package kern

import "testing"

func TestReadyList(t *testing.T) {
	var l readyList
	procs := []*Process{{name: "a"}, {name: "b"}, {name: "c"}}

	if l.popFront() != nil {
		t.Fatal("popFront on empty list returned a process")
	}
	for _, p := range procs {
		l.pushBack(p)
	}
	if !l.valid() || l.len() != 3 {
		t.Fatalf("list invalid after pushes, len %d", l.len())
	}
	if !l.contains(procs[1]) || l.contains(&Process{}) {
		t.Fatal("contains gave a wrong answer")
	}

	for _, want := range procs {
		if got := l.popFront(); got != want {
			t.Fatalf("popFront() = %v, want %s", got, want.name)
		}
		if !l.valid() {
			t.Fatal("list invalid after pop")
		}
	}
	if l.len() != 0 || l.head != nil || l.tail != nil {
		t.Fatal("list not empty after popping everything")
	}
}

func TestReadyListDetectsCorruption(t *testing.T) {
	var l readyList
	a, b := &Process{}, &Process{}
	l.pushBack(a)
	l.pushBack(b)

	b.prev = nil
	if l.valid() {
		t.Fatal("broken back link not detected")
	}
	b.prev = a

	l.n = 5
	if l.valid() {
		t.Fatal("wrong count not detected")
	}
}
