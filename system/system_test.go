package system

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"omibyte.io/rtkern/config"
	"omibyte.io/rtkern/targets"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	return log
}

func boot(t *testing.T, cfg config.Config) *System {
	t.Helper()
	s, err := New(cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// runWorkers runs n processes that each record their name rounds times.
func runWorkers(t *testing.T, s *System, n, rounds int) []string {
	t.Helper()
	k := s.Kernel

	var order []string
	for i := 0; i < n; i++ {
		name := string(rune('A' + i))
		_, err := k.Create(name, func() {
			for r := 0; r < rounds; r++ {
				order = append(order, name)
				k.Yield()
			}
		}, nil, 0, nil)
		if err != nil {
			t.Fatal(err)
		}
	}
	for k.Processes() > 1 {
		k.Yield()
	}
	return order
}

func TestBootEveryTarget(t *testing.T) {
	for _, target := range targets.All() {
		target := target
		t.Run(target.Name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Target = target.Name
			s := boot(t, cfg)
			defer s.Shutdown()

			if got := strings.Join(runWorkers(t, s, 3, 2), ""); got != "ABCABC" {
				t.Fatalf("run order %s, want ABCABC", got)
			}

			report := s.Monitor.Report()
			if len(report) != 1 || report[0].Name != "main" {
				t.Fatalf("monitor still lists %+v", report)
			}
		})
	}
}

func TestModulesInitializedInOrder(t *testing.T) {
	s := boot(t, config.Default())
	defer s.Shutdown()

	order, err := s.Modules.Order()
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(order, ","); got != "cpu,heap,monitor,stack,kern,rtask" {
		t.Fatalf("module order %s", got)
	}
	for _, name := range order {
		if !s.Modules.Initialized(name) {
			t.Errorf("module %s not initialized", name)
		}
	}
	if s.Kernel.Current() != s.Main || s.Main.Name() != "main" {
		t.Fatal("caller is not the main process")
	}
	if !strings.HasPrefix(s.ID, "boot_") {
		t.Fatalf("unexpected boot id %q", s.ID)
	}
}

func TestHeapMode(t *testing.T) {
	cfg := config.Default()
	cfg.StackMode = config.StackHeap
	s := boot(t, cfg)
	defer s.Shutdown()

	runWorkers(t, s, 4, 1)

	st := s.Heap.Stats()
	if st.Allocs != 4 || st.Frees != 4 || st.FreeBytes != s.Heap.Size() {
		t.Fatalf("heap not balanced: %+v", st)
	}
}

func TestStaticModeHasNoRunner(t *testing.T) {
	cfg := config.Default()
	cfg.StackMode = config.StackStatic
	s := boot(t, cfg)
	defer s.Shutdown()

	if s.Tasks != nil {
		t.Fatal("task runner started without a stack buffer")
	}
	if s.Heap != nil {
		t.Fatal("heap created in static mode")
	}
}

func TestPeriodicTask(t *testing.T) {
	s := boot(t, config.Default())
	defer s.Shutdown()

	runs := 0
	if _, err := s.Tasks.Add(func(any) bool {
		runs++
		return runs < 3
	}, 1, nil); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		s.Machine.Raise(s.Kernel.Tick)
		s.Kernel.Yield()
	}
	if runs != 3 {
		t.Fatalf("task ran %d times, want 3", runs)
	}
}

func TestTimerDrivesPreemption(t *testing.T) {
	cfg := config.Default()
	cfg.Preemptive = true
	cfg.Quantum = 1
	s := boot(t, cfg)
	defer s.Shutdown()

	k := s.Kernel
	count := 0
	if _, err := k.Create("spinner", func() {
		for {
			count++
			k.PreemptPoint()
		}
	}, nil, 0, nil); err != nil {
		t.Fatal(err)
	}

	s.StartTimer(time.Millisecond)
	for count == 0 {
		k.PreemptPoint()
	}
	if k.Ticks() == 0 {
		t.Fatal("no ticks delivered")
	}
}

func TestBootRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.StackMode = "stackless"
	if _, err := New(cfg, testLogger()); !errors.Is(err, config.ErrUnknownMode) {
		t.Fatalf("New() error = %v, want ErrUnknownMode", err)
	}
}
