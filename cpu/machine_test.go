package cpu

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testMachine() *Machine {
	log := logrus.New()
	log.Out = io.Discard
	return NewMachine(Host, log)
}

// frame synthesizes the initial frame the way the kernel does.
func frame(m *Machine, entry, exit func()) *Context {
	s := &Stack{Arch: m.Arch(), Words: make([]Word, 64), SP: 64}
	s.PushCallFrame(m.CodeAddr(exit))
	s.PushCallFrame(m.CodeAddr(entry))
	for i := 0; i < s.Arch.SavedRegs; i++ {
		s.PushWord(s.Arch.RegInit(i))
	}
	return NewContext(s)
}

func TestMachineSwitchRunsEntryThenExit(t *testing.T) {
	m := testMachine()
	main := m.Adopt()

	var trace []string
	var child *Context
	child = frame(m,
		func() { trace = append(trace, "entry") },
		func() {
			trace = append(trace, "exit")
			m.Switch(main, nil)
		})

	m.Switch(child, main)

	if len(trace) != 2 || trace[0] != "entry" || trace[1] != "exit" {
		t.Fatalf("trace = %v, want [entry exit]", trace)
	}
	if child.Stack.SP != 64 {
		t.Fatalf("frame not fully consumed, SP = %d", child.Stack.SP)
	}
	if got := m.Switches(); got != 2 {
		t.Fatalf("Switches() = %d, want 2", got)
	}
}

func TestMachinePingPong(t *testing.T) {
	m := testMachine()
	main := m.Adopt()

	var trace []int
	var child *Context
	child = frame(m, func() {
		for i := 0; i < 3; i++ {
			trace = append(trace, 1)
			m.Switch(main, child)
		}
	}, func() { m.Switch(main, nil) })

	for i := 0; i < 4; i++ {
		trace = append(trace, 0)
		m.Switch(child, main)
	}

	want := []int{0, 1, 0, 1, 0, 1, 0}
	if len(trace) != len(want) {
		t.Fatalf("trace = %v, want %v", trace, want)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("trace = %v, want %v", trace, want)
		}
	}
}

func TestMachineCorruptFramePanics(t *testing.T) {
	m := testMachine()
	ctx := frame(m, func() {}, func() {})
	ctx.Stack.Words[ctx.Stack.SP] ^= 0xFF

	defer func() {
		if r := recover(); r != ErrCorruptFrame {
			t.Fatalf("recover() = %v, want ErrCorruptFrame", r)
		}
	}()
	m.Discard(ctx)
}

func TestMachineDiscardReleasesCodeAddresses(t *testing.T) {
	m := testMachine()
	ctx := frame(m, func() {}, func() {})
	if len(m.code) != 2 {
		t.Fatalf("code table has %d entries, want 2", len(m.code))
	}
	m.Discard(ctx)
	if len(m.code) != 0 {
		t.Fatalf("code table has %d entries after Discard, want 0", len(m.code))
	}
}

func TestMachineDiscardEndsParkedContext(t *testing.T) {
	m := testMachine()
	main := m.Adopt()

	exited := make(chan struct{})
	var child *Context
	child = frame(m, func() {
		defer close(exited)
		m.Switch(main, child)
		t.Error("discarded context resumed")
	}, func() {})

	m.Switch(child, main)
	m.Discard(child)

	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatal("parked goroutine still running after Discard")
	}
}

func TestMachineCodeAddrFitsCallFrame(t *testing.T) {
	log := logrus.New()
	log.Out = io.Discard
	m := NewMachine(Arch{WordSize: 1, CallFrameWords: 1, SavedRegs: 0}, log)

	for i := 0; i < 0x100-int(codeBase)+10; i++ {
		func() {
			defer func() { recover() }()
			if addr := m.CodeAddr(func() {}); addr > 0xFF {
				t.Fatalf("CodeAddr() = %#x does not fit one byte", addr)
			}
		}()
	}
}

func TestIRQSaveRestoreNests(t *testing.T) {
	m := testMachine()

	outer := m.Save()
	inner := m.Save()
	if m.Enabled() {
		t.Fatal("interrupts enabled inside masked section")
	}
	m.Restore(inner)
	if m.Enabled() {
		t.Fatal("inner Restore re-enabled interrupts")
	}
	m.Restore(outer)
	if !m.Enabled() {
		t.Fatal("outer Restore did not re-enable interrupts")
	}
}

func TestIRQHandlersDeferredWhileMasked(t *testing.T) {
	m := testMachine()

	ran := false
	flags := m.Save()
	m.Raise(func() {
		if !m.InInterrupt() || m.Enabled() {
			t.Error("handler not running in masked interrupt context")
		}
		ran = true
	})
	m.Poll()
	if ran {
		t.Fatal("handler ran with interrupts masked")
	}
	m.Restore(flags)
	if !ran {
		t.Fatal("handler did not run when interrupts were re-enabled")
	}
	if m.InInterrupt() {
		t.Fatal("still in interrupt context after handler")
	}
}

func TestIRQIdleWakesOnRaise(t *testing.T) {
	m := testMachine()

	ran := make(chan struct{})
	go func() {
		time.Sleep(5 * time.Millisecond)
		m.Raise(func() { close(ran) })
	}()

	m.Idle()
	select {
	case <-ran:
	default:
		t.Fatal("Idle returned before the handler ran")
	}
}

func TestIRQIdleIgnoresStaleWake(t *testing.T) {
	m := testMachine()

	// Serviced immediately, leaving a token in the wake channel.
	m.Raise(func() {})
	m.Poll()

	count := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		m.Raise(func() { count++ })
	}()
	m.Idle()
	if count != 1 {
		t.Fatalf("Idle returned without servicing the second interrupt")
	}
}

func TestIRQIdleAfterEnableTakesPendingInterrupt(t *testing.T) {
	m := testMachine()

	ran := false
	m.Disable()
	m.Raise(func() { ran = true })
	m.Enable()
	if !ran {
		t.Fatal("Enable did not take the pending interrupt")
	}

	// Must not block: the interrupt was taken when the window opened.
	m.Idle()
}
