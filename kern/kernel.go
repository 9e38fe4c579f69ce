package kern

import (
	"github.com/sirupsen/logrus"

	"omibyte.io/rtkern/cpu"
	"omibyte.io/rtkern/stack"
)

// Options selects the optional kernel features.
type Options struct {
	// Preemptive enables the forbid/permit gate and time slicing.
	Preemptive bool

	// Quantum is the number of ticks a process runs before it may be
	// preempted.
	Quantum int

	Signals bool

	// Monitor enables stack painting and the monitor hooks.
	Monitor       bool
	StackFillCode cpu.Word
}

// Monitor receives process lifecycle events. stack is the usable stack area
// and growsUp tells which end of it is used first.
type Monitor interface {
	Add(id uint32, name string, stack []cpu.Word, growsUp bool)
	Rename(id uint32, name string)
	Remove(id uint32)
}

// Kernel is the process-wide scheduler context. All fields below cpu are
// touched by the running process only, and the ones shared with interrupt
// handlers only with interrupts masked.
type Kernel struct {
	cpu    cpu.CPU
	arch   cpu.Arch
	stacks stack.Provider
	mon    Monitor
	log    logrus.FieldLogger
	opts   Options

	headerBytes int

	current *Process
	main    *Process
	ready   readyList
	zombies []*Process
	procs   map[uint32]*Process
	nextID  uint32

	ticks     uint64
	quantum   int
	preemptRq bool
	down      bool
}

// New creates a kernel. mon may be nil; it is ignored unless the monitor is
// enabled in opts.
func New(c cpu.CPU, stacks stack.Provider, mon Monitor, opts Options, log logrus.FieldLogger) *Kernel {
	if !opts.Monitor {
		mon = nil
	}
	if opts.Quantum <= 0 {
		opts.Quantum = 1
	}
	return &Kernel{
		cpu:         c,
		arch:        c.Arch(),
		stacks:      stacks,
		mon:         mon,
		log:         log.WithField("component", "kern"),
		opts:        opts,
		headerBytes: HeaderBytes(c.Arch(), opts),
		procs:       map[uint32]*Process{},
	}
}

// Init turns the calling code into the main process and makes it current.
func (k *Kernel) Init(name string) *Process {
	k.assert(k.current == nil && k.main == nil, "kernel initialized twice")

	p := &Process{
		ctx:  k.cpu.Adopt(),
		name: name,
		id:   k.newID(),
	}
	k.procs[p.id] = p
	k.main = p
	k.current = p
	k.quantum = k.opts.Quantum

	if k.mon != nil {
		k.mon.Add(p.id, p.name, nil, k.arch.GrowsUp)
	}
	k.log.WithField("proc", name).Debug("kernel initialized")
	return p
}

// Shutdown stops every process but the caller and reclaims their stacks. The
// kernel cannot be used afterwards.
func (k *Kernel) Shutdown() {
	k.assert(!k.down, "kernel shut down twice")

	flags := k.cpu.Save()
	var victims []*Process
	for id, p := range k.procs {
		if p != k.current {
			victims = append(victims, p)
		}
		delete(k.procs, id)
	}
	for k.ready.popFront() != nil {
	}
	k.down = true
	k.cpu.Restore(flags)

	k.reap()
	for _, p := range victims {
		k.cpu.Discard(p.ctx)
		k.stacks.Release(p.region)
		if k.mon != nil {
			k.mon.Remove(p.id)
		}
	}
	if k.mon != nil && k.current != nil {
		k.mon.Remove(k.current.id)
	}
	k.log.WithField("stopped", len(victims)).Debug("kernel shut down")
}

func (k *Kernel) newID() uint32 {
	k.nextID++
	return k.nextID
}

// Options returns the feature set the kernel was built with.
func (k *Kernel) Options() Options {
	return k.opts
}

// HeaderBytes returns the size of the header stored in every process region.
func (k *Kernel) HeaderBytes() int {
	return k.headerBytes
}

func (k *Kernel) Current() *Process {
	return k.current
}

func (k *Kernel) CurrentUserData() any {
	return k.current.userData
}

// Rename changes the debug name of p.
func (k *Kernel) Rename(p *Process, name string) {
	p.name = name
	if k.mon != nil {
		k.mon.Rename(p.id, name)
	}
}

// Ticks returns the number of timer ticks seen by the kernel.
func (k *Kernel) Ticks() (t uint64) {
	cpu.Atomic(k.cpu, func() {
		t = k.ticks
	})
	return t
}

// ReadyLen returns the number of processes waiting to run.
func (k *Kernel) ReadyLen() (n int) {
	cpu.Atomic(k.cpu, func() {
		n = k.ready.len()
	})
	return n
}

// Processes returns the number of live processes, the current one included.
func (k *Kernel) Processes() (n int) {
	cpu.Atomic(k.cpu, func() {
		n = len(k.procs)
	})
	return n
}
