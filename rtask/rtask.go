package rtask

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"omibyte.io/rtkern/kern"
)

// sigWake tells the runner process that a task was added.
const sigWake kern.SigMask = 1 << 15

// Func is a task body. Returning false removes the task.
type Func func(data any) bool

// Task is a registered callback.
type Task struct {
	fn       Func
	data     any
	period   uint64
	deadline uint64
	removed  bool
}

// Runner calls tasks from a single process, each once its period in kernel
// ticks has elapsed. The process is created by the first Add.
type Runner struct {
	k         *kern.Kernel
	log       logrus.FieldLogger
	stackSize int

	proc  *kern.Process
	tasks []*Task
}

func New(k *kern.Kernel, stackSize int, log logrus.FieldLogger) *Runner {
	return &Runner{
		k:         k,
		log:       log.WithField("component", "rtask"),
		stackSize: stackSize,
	}
}

// Add registers fn to be called with data every period ticks.
func (r *Runner) Add(fn Func, period uint64, data any) (*Task, error) {
	if r.proc == nil {
		p, err := r.k.Create("rtask", r.loop, r, r.stackSize, nil)
		if err != nil {
			return nil, fmt.Errorf("could not start task runner: %w", err)
		}
		r.proc = p
	}

	t := &Task{
		fn:       fn,
		data:     data,
		period:   period,
		deadline: r.k.Ticks() + period,
	}
	r.tasks = append(r.tasks, t)

	if r.k.Options().Signals {
		r.k.Signal(r.proc, sigWake)
	}
	return t, nil
}

// Remove unregisters t. It is safe to call from a task body.
func (r *Runner) Remove(t *Task) {
	t.removed = true
	for i, it := range r.tasks {
		if it == t {
			r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered tasks.
func (r *Runner) Len() int {
	return len(r.tasks)
}

// Process returns the runner process, or nil before the first Add.
func (r *Runner) Process() *kern.Process {
	return r.proc
}

func (r *Runner) loop() {
	for {
		if len(r.tasks) == 0 && r.k.Options().Signals {
			r.k.Wait(sigWake)
			continue
		}
		r.run(r.k.Ticks())
		r.k.Yield()
	}
}

// run calls every task that is due at now.
func (r *Runner) run(now uint64) {
	due := make([]*Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		if t.deadline <= now {
			due = append(due, t)
		}
	}

	for _, t := range due {
		if t.removed {
			continue
		}
		if !t.fn(t.data) {
			r.log.Debug("task finished")
			r.Remove(t)
			continue
		}
		t.deadline += t.period
	}
}
