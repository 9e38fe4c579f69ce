package kern

import (
	"errors"

	"github.com/sirupsen/logrus"

	"omibyte.io/rtkern/cpu"
	"omibyte.io/rtkern/stack"
)

// Create makes a new process ready to run entry. size is the stack size in
// bytes and buf an optional caller supplied stack; which of the two is used
// depends on the stack provider. The process does not run until scheduled.
func (k *Kernel) Create(name string, entry func(), userData any, size int, buf []cpu.Word) (*Process, error) {
	region, err := k.stacks.Acquire(size, buf)
	if err != nil {
		k.assert(!errors.Is(err, stack.ErrContract), err.Error())
		k.log.WithError(err).WithField("proc", name).Warn("no stack for process")
		return nil, errors.Join(ErrCreate, err)
	}

	layout, err := ComputeLayout(len(region.Words), k.headerBytes, k.arch)
	if err != nil {
		k.stacks.Release(region)
		return nil, errors.Join(ErrCreate, err)
	}

	if k.opts.Monitor {
		for i := range region.Words {
			region.Words[i] = k.arch.Trunc(k.opts.StackFillCode)
		}
	}

	p := &Process{
		region:   region,
		layout:   layout,
		userData: userData,
		name:     name,
		id:       k.newID(),
	}
	if region.Owned {
		p.flags |= FlagFreeStack
	}
	if region.Pooled {
		p.flags |= FlagPoolStack
	}

	// Header image.
	region.Words[layout.Header] = k.arch.Trunc(headerMagic)
	region.Words[layout.Header+1] = k.arch.Trunc(cpu.Word(p.id))

	// Initial frame: the exit routine as the return address of the entry,
	// the entry itself, then the registers the switch routine restores.
	s := &cpu.Stack{
		Arch:  k.arch,
		Words: region.Words,
		SP:    layout.SP,
	}
	s.PushCallFrame(k.cpu.CodeAddr(k.Exit))
	s.PushCallFrame(k.cpu.CodeAddr(func() {
		k.reap()
		entry()
	}))
	for i := 0; i < k.arch.SavedRegs; i++ {
		s.PushWord(k.arch.RegInit(i))
	}
	p.ctx = cpu.NewContext(s)

	flags := k.cpu.Save()
	k.ready.pushBack(p)
	k.procs[p.id] = p
	k.assert(k.ready.valid(), "ready queue corrupt after create")
	k.cpu.Restore(flags)

	if k.mon != nil {
		k.mon.Add(p.id, name, p.StackWords(), k.arch.GrowsUp)
	}

	k.log.WithFields(logrus.Fields{
		"proc":  name,
		"id":    p.id,
		"words": len(region.Words),
	}).Debug("process created")
	return p, nil
}
