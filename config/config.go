package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"omibyte.io/rtkern/targets"
)

var (
	ErrUnknownMode  = errors.New("unknown stack mode")
	ErrInvalidValue = errors.New("invalid configuration value")
	ErrFormat       = errors.New("unsupported configuration format")
)

// StackMode selects how process stacks are provided.
type StackMode string

const (
	StackEmul   StackMode = "emul"
	StackHeap   StackMode = "heap"
	StackStatic StackMode = "static"
)

type Log struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`

	// Dir enables daily rotated log files when set.
	Dir         string `yaml:"dir,omitempty" toml:"dir"`
	RotateCount uint   `yaml:"rotateCount,omitempty" toml:"rotateCount"`
}

type Config struct {
	Target    string    `yaml:"target" toml:"target"`
	StackMode StackMode `yaml:"stackMode" toml:"stackMode"`

	// DefaultStackSize is used for processes created without a size, in
	// bytes and without the process header.
	DefaultStackSize int `yaml:"defaultStackSize" toml:"defaultStackSize"`

	EmulStackCount int `yaml:"emulStackCount" toml:"emulStackCount"`
	EmulStackSize  int `yaml:"emulStackSize" toml:"emulStackSize"`
	HeapSize       int `yaml:"heapSize" toml:"heapSize"`

	Preemptive    bool   `yaml:"preemptive" toml:"preemptive"`
	Quantum       int    `yaml:"quantum" toml:"quantum"`
	Signals       bool   `yaml:"signals" toml:"signals"`
	Monitor       bool   `yaml:"monitor" toml:"monitor"`
	StackFillCode uint64 `yaml:"stackFillCode" toml:"stackFillCode"`

	Log Log `yaml:"log" toml:"log"`
}

func Default() Config {
	return Config{
		Target:           "host",
		StackMode:        StackEmul,
		DefaultStackSize: 1024,
		EmulStackCount:   16,
		EmulStackSize:    4096,
		HeapSize:         64 * 1024,
		Preemptive:       false,
		Quantum:          10,
		Signals:          true,
		Monitor:          true,
		StackFillCode:    0xA5A5A5A5,
		Log: Log{
			Level:       "info",
			Format:      "text",
			RotateCount: 7,
		},
	}
}

// Load reads a YAML or TOML file on top of the defaults and then applies the
// RTKERN_* environment overrides. An empty path only applies the overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if len(path) > 0 {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("could not read config: %w", err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, &cfg)
		case ".toml":
			_, err = toml.Decode(string(data), &cfg)
		default:
			return cfg, fmt.Errorf("%w: %s", ErrFormat, path)
		}
		if err != nil {
			return cfg, fmt.Errorf("could not parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() (err error) {
	c.Target = getenv("RTKERN_TARGET", c.Target)
	c.StackMode = StackMode(getenv("RTKERN_STACK_MODE", string(c.StackMode)))
	c.Log.Level = getenv("RTKERN_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getenv("RTKERN_LOG_FORMAT", c.Log.Format)
	c.Log.Dir = getenv("RTKERN_LOG_DIR", c.Log.Dir)

	if c.Preemptive, err = getenvBool("RTKERN_PREEMPTIVE", c.Preemptive); err != nil {
		return err
	}
	if c.Quantum, err = getenvInt("RTKERN_QUANTUM", c.Quantum); err != nil {
		return err
	}
	if c.HeapSize, err = getenvInt("RTKERN_HEAP_SIZE", c.HeapSize); err != nil {
		return err
	}
	if c.DefaultStackSize, err = getenvInt("RTKERN_DEFAULT_STACK_SIZE", c.DefaultStackSize); err != nil {
		return err
	}
	return nil
}

// Validate checks the configuration for values the kernel cannot run with.
func (c Config) Validate() error {
	if _, err := targets.All().FindByName(c.Target); err != nil {
		return err
	}

	switch c.StackMode {
	case StackEmul:
		if c.EmulStackCount <= 0 || c.EmulStackSize <= 0 {
			return fmt.Errorf("%w: emulated stacks need a count and a size", ErrInvalidValue)
		}
	case StackHeap:
		if c.HeapSize <= 0 {
			return fmt.Errorf("%w: heapSize %d", ErrInvalidValue, c.HeapSize)
		}
	case StackStatic:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, c.StackMode)
	}

	if c.DefaultStackSize <= 0 {
		return fmt.Errorf("%w: defaultStackSize %d", ErrInvalidValue, c.DefaultStackSize)
	}
	if c.Preemptive && c.Quantum <= 0 {
		return fmt.Errorf("%w: quantum %d", ErrInvalidValue, c.Quantum)
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// EncodeTOML renders the configuration as TOML.
func (c Config) EncodeTOML() ([]byte, error) {
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(c); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

func getenv(key, _default string) (value string) {
	value = os.Getenv(key)
	if len(value) == 0 {
		value = _default
	}
	return value
}

func getenvInt(key string, _default int) (int, error) {
	value := os.Getenv(key)
	if len(value) == 0 {
		return _default, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return _default, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, value)
	}
	return n, nil
}

func getenvBool(key string, _default bool) (bool, error) {
	value := os.Getenv(key)
	if len(value) == 0 {
		return _default, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return _default, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, value)
	}
	return b, nil
}
