package monitor

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"omibyte.io/rtkern/cpu"
)

type proc struct {
	name    string
	stack   []cpu.Word
	growsUp bool
}

// Entry is one line of a monitor report.
type Entry struct {
	ID         uint32
	Name       string
	StackWords int
	FreeWords  int
}

// Monitor keeps track of live processes and measures how much of their stack
// was never touched, going by the fill pattern painted at creation.
type Monitor struct {
	arch  cpu.Arch
	fill  cpu.Word
	log   logrus.FieldLogger
	procs map[uint32]*proc
}

func New(arch cpu.Arch, fill cpu.Word, log logrus.FieldLogger) *Monitor {
	return &Monitor{
		arch:  arch,
		fill:  arch.Trunc(fill),
		log:   log.WithField("component", "monitor"),
		procs: map[uint32]*proc{},
	}
}

func (m *Monitor) Add(id uint32, name string, stack []cpu.Word, growsUp bool) {
	m.procs[id] = &proc{
		name:    name,
		stack:   stack,
		growsUp: growsUp,
	}
}

func (m *Monitor) Rename(id uint32, name string) {
	if p, ok := m.procs[id]; ok {
		p.name = name
	}
}

func (m *Monitor) Remove(id uint32) {
	delete(m.procs, id)
}

// Len returns the number of monitored processes.
func (m *Monitor) Len() int {
	return len(m.procs)
}

// FreeWords returns the number of stack words of process id that still hold
// the fill pattern, counted from the end of the stack that is used last.
func (m *Monitor) FreeWords(id uint32) int {
	p, ok := m.procs[id]
	if !ok {
		return 0
	}
	return m.free(p)
}

func (m *Monitor) free(p *proc) (n int) {
	if p.growsUp {
		for i := len(p.stack) - 1; i >= 0 && p.stack[i] == m.fill; i-- {
			n++
		}
		return n
	}
	for i := 0; i < len(p.stack) && p.stack[i] == m.fill; i++ {
		n++
	}
	return n
}

// Report lists the monitored processes by id.
func (m *Monitor) Report() []Entry {
	ids := maps.Keys(m.procs)
	slices.Sort(ids)

	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		p := m.procs[id]
		entries = append(entries, Entry{
			ID:         id,
			Name:       p.name,
			StackWords: len(p.stack),
			FreeWords:  m.free(p),
		})
	}
	return entries
}

// Log writes the report at info level.
func (m *Monitor) Log() {
	for _, e := range m.Report() {
		m.log.WithFields(logrus.Fields{
			"id":    e.ID,
			"proc":  e.Name,
			"stack": e.StackWords * m.arch.WordSize,
			"free":  e.FreeWords * m.arch.WordSize,
		}).Info("process")
	}
}
