package module

import (
	"errors"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/multi"
	"gonum.org/v1/gonum/graph/topo"
)

var (
	ErrCycle             = errors.New("module dependency cycle")
	ErrUnknownDependency = errors.New("unknown module dependency")
	ErrDuplicateModule   = errors.New("module defined twice")
)

// InitFunc brings up one subsystem.
type InitFunc func() error

type moduleNode struct {
	id          int64
	name        string
	init        InitFunc
	deps        []string
	initialized bool
}

func (n *moduleNode) ID() int64 {
	return n.id
}

// Registry holds subsystems and initializes them in dependency order.
type Registry struct {
	log     logrus.FieldLogger
	modules map[string]*moduleNode
}

func NewRegistry(log logrus.FieldLogger) *Registry {
	return &Registry{
		log:     log.WithField("component", "module"),
		modules: map[string]*moduleNode{},
	}
}

// Define registers a subsystem that needs deps to be initialized first.
func (r *Registry) Define(name string, init InitFunc, deps ...string) error {
	if _, ok := r.modules[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateModule, name)
	}
	if slices.Contains(deps, name) {
		return fmt.Errorf("%w: %s depends on itself", ErrCycle, name)
	}

	hasher := fnv.New64()
	hasher.Write([]byte(name))
	r.modules[name] = &moduleNode{
		id:   int64(hasher.Sum64()),
		name: name,
		init: init,
		deps: deps,
	}
	return nil
}

// Initialized reports whether the named subsystem has been brought up.
func (r *Registry) Initialized(name string) bool {
	m, ok := r.modules[name]
	return ok && m.initialized
}

// Names returns the defined module names in alphabetical order.
func (r *Registry) Names() []string {
	names := maps.Keys(r.modules)
	slices.Sort(names)
	return names
}

// Order returns the module names in initialization order. Among modules whose
// dependencies are satisfied the alphabetically first comes first.
func (r *Registry) Order() ([]string, error) {
	g := multi.NewDirectedGraph()
	for _, name := range r.Names() {
		m := r.modules[name]
		if g.Node(m.id) == nil {
			g.AddNode(m)
		}
		for _, dep := range m.deps {
			d, ok := r.modules[dep]
			if !ok {
				return nil, fmt.Errorf("%w: %s needs %s", ErrUnknownDependency, name, dep)
			}
			g.SetLine(g.NewLine(d, m))
		}
	}

	if _, err := topo.Sort(g); err != nil {
		var cycles topo.Unorderable
		if errors.As(err, &cycles) {
			return nil, fmt.Errorf("%w: %s", ErrCycle, describe(cycles))
		}
		return nil, err
	}

	// Kahn's algorithm, always taking the alphabetically first module whose
	// dependencies are done. SortStabilized cannot give this order since it
	// is a reversed DFS postorder.
	pending := map[int64]int{}
	var ready []string
	for _, name := range r.Names() {
		m := r.modules[name]
		pending[m.id] = g.To(m.id).Len()
		if pending[m.id] == 0 {
			ready = append(ready, name)
		}
	}

	order := make([]string, 0, len(r.modules))
	for len(ready) > 0 {
		m := r.modules[ready[0]]
		ready = ready[1:]
		order = append(order, m.name)

		for _, n := range graph.NodesOf(g.From(m.id)) {
			next := n.(*moduleNode)
			if pending[next.id]--; pending[next.id] == 0 {
				ready = append(ready, next.name)
				slices.Sort(ready)
			}
		}
	}
	return order, nil
}

// InitAll initializes every module that is not initialized yet. It stops at
// the first failure.
func (r *Registry) InitAll() error {
	order, err := r.Order()
	if err != nil {
		return err
	}

	for _, name := range order {
		m := r.modules[name]
		if m.initialized {
			continue
		}
		if m.init != nil {
			if err = m.init(); err != nil {
				return fmt.Errorf("module %s: %w", name, err)
			}
		}
		m.initialized = true
		r.log.WithField("module", name).Debug("initialized")
	}
	return nil
}

func describe(cycles topo.Unorderable) string {
	var parts []string
	for _, component := range cycles {
		names := make([]string, 0, len(component))
		for _, n := range component {
			names = append(names, n.(*moduleNode).name)
		}
		slices.Sort(names)
		parts = append(parts, strings.Join(names, " <-> "))
	}
	return strings.Join(parts, ", ")
}
