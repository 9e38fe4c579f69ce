package system

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"omibyte.io/rtkern/config"
	"omibyte.io/rtkern/cpu"
	"omibyte.io/rtkern/heap"
	"omibyte.io/rtkern/kern"
	"omibyte.io/rtkern/module"
	"omibyte.io/rtkern/monitor"
	"omibyte.io/rtkern/rtask"
	"omibyte.io/rtkern/stack"
	"omibyte.io/rtkern/targets"
)

// System is a kernel running on the hosted machine, together with the
// subsystems built around it.
type System struct {
	ID     string
	Config config.Config
	Target targets.TargetInfo

	Machine *cpu.Machine
	Heap    *heap.Heap
	Stacks  stack.Provider
	Monitor *monitor.Monitor
	Kernel  *kern.Kernel
	Tasks   *rtask.Runner
	Modules *module.Registry

	// Main is the process of the goroutine that called New.
	Main *kern.Process

	log       logrus.FieldLogger
	stopTimer chan struct{}
}

// New boots a system. The calling goroutine becomes the main process and must
// be the one that uses the kernel afterwards.
func New(cfg config.Config, log logrus.FieldLogger) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	target, err := targets.All().FindByName(cfg.Target)
	if err != nil {
		return nil, err
	}

	s := &System{
		ID:      "boot_" + uuid.New().String()[:8],
		Config:  cfg,
		Target:  target,
		Modules: module.NewRegistry(log),
	}
	s.log = log.WithField("boot", s.ID)

	if err = s.define(); err != nil {
		return nil, err
	}
	if err = s.Modules.InitAll(); err != nil {
		return nil, fmt.Errorf("could not boot: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"target": target.Name,
		"mode":   cfg.StackMode,
	}).Info("system up")
	return s, nil
}

func (s *System) options() kern.Options {
	return kern.Options{
		Preemptive:    s.Config.Preemptive,
		Quantum:       s.Config.Quantum,
		Signals:       s.Config.Signals,
		Monitor:       s.Config.Monitor,
		StackFillCode: cpu.Word(s.Config.StackFillCode),
	}
}

func (s *System) define() error {
	arch := s.Target.Arch()
	opts := s.options()

	defs := []struct {
		name string
		init module.InitFunc
		deps []string
	}{
		{"cpu", func() error {
			s.Machine = cpu.NewMachine(arch, s.log)
			return nil
		}, nil},
		{"heap", func() error {
			if s.Config.StackMode == config.StackHeap {
				s.Heap = heap.New(s.Config.HeapSize, arch.WordSize)
			}
			return nil
		}, []string{"cpu"}},
		{"stack", func() error {
			switch s.Config.StackMode {
			case config.StackEmul:
				s.Stacks = stack.NewPool(s.Machine, s.Config.EmulStackCount, s.Config.EmulStackSize, arch.WordSize)
			case config.StackHeap:
				s.Stacks = stack.NewHeap(s.Heap, arch.WordSize, s.Config.DefaultStackSize+kern.HeaderBytes(arch, opts))
			case config.StackStatic:
				s.Stacks = stack.NewStatic(arch.WordSize)
			}
			return nil
		}, []string{"cpu", "heap"}},
		{"monitor", func() error {
			if s.Config.Monitor {
				s.Monitor = monitor.New(arch, cpu.Word(s.Config.StackFillCode), s.log)
			}
			return nil
		}, []string{"cpu"}},
		{"kern", func() error {
			var mon kern.Monitor
			if s.Monitor != nil {
				mon = s.Monitor
			}
			s.Kernel = kern.New(s.Machine, s.Stacks, mon, opts, s.log)
			s.Main = s.Kernel.Init("main")
			return nil
		}, []string{"cpu", "stack", "monitor"}},
		{"rtask", func() error {
			// Static stacks need a caller buffer, which the runner lacks.
			if s.Config.StackMode != config.StackStatic {
				s.Tasks = rtask.New(s.Kernel, 0, s.log)
			}
			return nil
		}, []string{"kern"}},
	}

	for _, def := range defs {
		if err := s.Modules.Define(def.name, def.init, def.deps...); err != nil {
			return err
		}
	}
	return nil
}

// StartTimer raises a kernel tick every period until Shutdown.
func (s *System) StartTimer(period time.Duration) {
	if s.stopTimer != nil {
		return
	}
	s.stopTimer = make(chan struct{})
	stop := s.stopTimer

	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Machine.Raise(s.Kernel.Tick)
			case <-stop:
				return
			}
		}
	}()
}

// Shutdown stops the timer and every process but the caller.
func (s *System) Shutdown() {
	if s.stopTimer != nil {
		close(s.stopTimer)
		s.stopTimer = nil
	}
	if s.Monitor != nil {
		s.Monitor.Log()
	}
	s.Kernel.Shutdown()
	s.log.WithField("switches", s.Machine.Switches()).Info("system down")
}
