package kern

import "testing"

func TestSignalWakesWaiter(t *testing.T) {
	k, _ := testKernel(t, Options{Signals: true}, pool(2, 1024))

	var got SigMask
	a, err := k.Create("A", func() { got = k.Wait(0x3) }, nil, 0, nil)
	if err != nil {
		t.Fatal(err)
	}

	k.Yield()
	if k.ReadyLen() != 0 || k.Processes() != 2 {
		t.Fatalf("A not blocked: ready=%d procs=%d", k.ReadyLen(), k.Processes())
	}

	k.Signal(a, 0x4)
	if k.ReadyLen() != 0 {
		t.Fatal("signal outside the wait mask woke the process")
	}

	k.Signal(a, 0x2)
	if k.ReadyLen() != 1 {
		t.Fatal("signal in the wait mask did not wake the process")
	}
	drain(k)

	if got != 0x2 {
		t.Fatalf("Wait() = %#x, want 0x2", got)
	}
}

func TestSignalFromInterrupt(t *testing.T) {
	k, m := testKernel(t, Options{Signals: true}, pool(2, 1024))

	woke := false
	a, err := k.Create("A", func() {
		k.Wait(1)
		woke = true
	}, nil, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	k.Yield()

	m.Raise(func() { k.Signal(a, 1) })
	k.PreemptPoint()
	drain(k)

	if !woke {
		t.Fatal("process not woken by an interrupt")
	}
}

func TestCheck(t *testing.T) {
	k, _ := testKernel(t, Options{Signals: true}, pool(1, 1024))

	main := k.Current()
	if got := k.Check(0xFF); got != 0 {
		t.Fatalf("Check() = %#x with nothing pending", got)
	}
	k.Signal(main, 0x11)
	if k.ReadyLen() != 0 {
		t.Fatal("signal enqueued a process that was not waiting")
	}
	if got := k.Check(0x01); got != 0x01 {
		t.Fatalf("Check(0x01) = %#x, want 0x01", got)
	}
	if got := k.Check(0xFF); got != 0x10 {
		t.Fatalf("Check(0xFF) = %#x, want 0x10", got)
	}
	if got := k.Check(0xFF); got != 0 {
		t.Fatalf("signals not cleared, Check() = %#x", got)
	}
}

func TestSignalsDisabledPanics(t *testing.T) {
	k, _ := testKernel(t, Options{}, pool(1, 1024))
	defer expectAssertion(t, "signals")
	k.Check(1)
}
