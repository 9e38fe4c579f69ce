package targets

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"omibyte.io/rtkern/cpu"
)

//go:embed targets.yaml
var rawTargets []byte

var targets Targets

var (
	ErrTargetNotFound = errors.New("target not found")
	ErrInvalidTarget  = errors.New("invalid target description")
)

func All() Targets {
	return targets
}

type Targets []TargetInfo
type TargetInfo struct {
	Name           string   `yaml:"name"`
	Aliases        []string `yaml:"aliases"`
	Architecture   string   `yaml:"architecture"`
	Description    string   `yaml:"description"`
	WordSize       int      `yaml:"wordSize"`
	StackGrowsUp   bool     `yaml:"stackGrowsUp"`
	SPOnEmptySlot  bool     `yaml:"spOnEmptySlot"`
	CallFrameWords int      `yaml:"callFrameWords"`
	SavedRegs      int      `yaml:"savedRegs"`
	Alignment      int      `yaml:"alignment"`
}

// Arch converts the description into the stack conventions used by the kernel.
func (t TargetInfo) Arch() cpu.Arch {
	return cpu.Arch{
		Name:           t.Name,
		WordSize:       t.WordSize,
		GrowsUp:        t.StackGrowsUp,
		SPOnEmptySlot:  t.SPOnEmptySlot,
		CallFrameWords: t.CallFrameWords,
		SavedRegs:      t.SavedRegs,
		Alignment:      t.Alignment,
	}
}

func (t TargetInfo) Validate() error {
	// Word size and alignment must be powers of two
	if t.WordSize <= 0 || t.WordSize&(t.WordSize-1) != 0 {
		return fmt.Errorf("%w: %s: word size %d", ErrInvalidTarget, t.Name, t.WordSize)
	}
	if t.Alignment < t.WordSize || t.Alignment&(t.Alignment-1) != 0 {
		return fmt.Errorf("%w: %s: alignment %d", ErrInvalidTarget, t.Name, t.Alignment)
	}
	if t.CallFrameWords <= 0 || t.SavedRegs < 0 {
		return fmt.Errorf("%w: %s: frame layout", ErrInvalidTarget, t.Name)
	}
	return nil
}

func (t Targets) FindByName(name string) (TargetInfo, error) {
	name = strings.ToLower(name)
	for _, target := range t {
		if target.Name == name || slices.Contains(target.Aliases, name) {
			return target, nil
		}
	}
	return TargetInfo{}, fmt.Errorf("%w: %q", ErrTargetNotFound, name)
}

func (t Targets) FindByArchitecture(arch string) Targets {
	var result Targets
	for _, target := range t {
		if target.Architecture == strings.ToLower(arch) {
			result = append(result, target)
		}
	}
	return result
}

// Names returns the primary names of all targets in table order.
func (t Targets) Names() []string {
	names := make([]string, len(t))
	for i, target := range t {
		names[i] = target.Name
	}
	return names
}

func parse(raw []byte) (Targets, error) {
	var t struct {
		Elements Targets `yaml:"targets"`
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, err
	}
	for _, target := range t.Elements {
		if err := target.Validate(); err != nil {
			return nil, err
		}
	}
	return t.Elements, nil
}

func init() {
	var err error
	if targets, err = parse(rawTargets); err != nil {
		panic(err)
	}
}
