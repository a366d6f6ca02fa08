// Package config provides configuration loading and access for deme runs.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all run configuration parameters.
type Config struct {
	Deme       DemeConfig       `yaml:"deme"`
	Hardware   HardwareConfig   `yaml:"hardware"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Programs   []ProgramConfig  `yaml:"programs"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// DemeConfig sizes the interactive grid.
type DemeConfig struct {
	Width  int   `yaml:"width"`
	Height int   `yaml:"height"`
	Seed   int64 `yaml:"seed"`
}

// HardwareConfig holds per-processor limits.
type HardwareConfig struct {
	MaxThreads       int     `yaml:"max_threads"`
	MaxCallDepth     int     `yaml:"max_call_depth"`
	MinBindThreshold float64 `yaml:"min_bind_threshold"` // Minimum affinity match in [0,1]
}

// EvaluationConfig controls fitness evaluation during landscaping.
type EvaluationConfig struct {
	Ticks          int     `yaml:"ticks"`           // Ticks each evaluation runs
	Fitness        string  `yaml:"fitness"`         // Registered fitness function name
	MaxRoleID      int     `yaml:"max_role_id"`     // Valid role ids are 1..max_role_id
	NeutralEpsilon float64 `yaml:"neutral_epsilon"` // |delta| <= this counts as neutral
	Width          int     `yaml:"width"`           // 0 = deme.width
	Height         int     `yaml:"height"`          // 0 = deme.height
	Seed           int64   `yaml:"seed"`            // 0 = deme.seed
}

// TelemetryConfig controls CSV output.
type TelemetryConfig struct {
	SnapshotInterval int `yaml:"snapshot_interval"` // Ticks between deme.csv rows, 0 = never
}

// ProgramConfig declares a catalog program structurally.
type ProgramConfig struct {
	Name      string           `yaml:"name"`
	Functions []FunctionConfig `yaml:"functions"`
}

// FunctionConfig is one function of a catalog program.
type FunctionConfig struct {
	Affinity     string              `yaml:"affinity"` // Bit string, most significant bit first
	Instructions []InstructionConfig `yaml:"instructions"`
}

// InstructionConfig names an opcode and its arguments.
type InstructionConfig struct {
	Op       string `yaml:"op"`
	Args     []int  `yaml:"args,omitempty"`
	Affinity string `yaml:"affinity,omitempty"`
}

// DerivedConfig holds computed values that are not loaded from YAML.
type DerivedConfig struct {
	EvalWidth    int            // Evaluation.Width or Deme.Width
	EvalHeight   int            // Evaluation.Height or Deme.Height
	EvalSeed     int64          // Evaluation.Seed or Deme.Seed
	ProgramIndex map[string]int // name -> index into Programs
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Defaults returns the embedded default configuration.
func Defaults() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used. A programs list in the
// file replaces the default catalog.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.EvalWidth = c.Evaluation.Width
	if c.Derived.EvalWidth == 0 {
		c.Derived.EvalWidth = c.Deme.Width
	}
	c.Derived.EvalHeight = c.Evaluation.Height
	if c.Derived.EvalHeight == 0 {
		c.Derived.EvalHeight = c.Deme.Height
	}
	c.Derived.EvalSeed = c.Evaluation.Seed
	if c.Derived.EvalSeed == 0 {
		c.Derived.EvalSeed = c.Deme.Seed
	}

	c.Derived.ProgramIndex = make(map[string]int, len(c.Programs))
	for i, p := range c.Programs {
		c.Derived.ProgramIndex[p.Name] = i
	}
}

// Validate checks value ranges and catalog names.
func (c *Config) Validate() error {
	var errs []error
	if c.Deme.Width <= 0 || c.Deme.Height <= 0 {
		errs = append(errs, fmt.Errorf("deme size %dx%d must be positive", c.Deme.Width, c.Deme.Height))
	}
	if c.Derived.EvalWidth <= 0 || c.Derived.EvalHeight <= 0 {
		errs = append(errs, fmt.Errorf("evaluation size %dx%d must be positive", c.Derived.EvalWidth, c.Derived.EvalHeight))
	}
	if c.Hardware.MaxThreads <= 0 {
		errs = append(errs, errors.New("hardware.max_threads must be positive"))
	}
	if c.Hardware.MaxCallDepth <= 0 {
		errs = append(errs, errors.New("hardware.max_call_depth must be positive"))
	}
	if c.Hardware.MinBindThreshold < 0 || c.Hardware.MinBindThreshold > 1 {
		errs = append(errs, fmt.Errorf("hardware.min_bind_threshold %v outside [0,1]", c.Hardware.MinBindThreshold))
	}
	if c.Evaluation.Ticks < 0 {
		errs = append(errs, errors.New("evaluation.ticks must not be negative"))
	}
	if c.Telemetry.SnapshotInterval < 0 {
		errs = append(errs, errors.New("telemetry.snapshot_interval must not be negative"))
	}

	seen := make(map[string]bool, len(c.Programs))
	for i, p := range c.Programs {
		switch {
		case p.Name == "":
			errs = append(errs, fmt.Errorf("programs[%d] has no name", i))
		case seen[p.Name]:
			errs = append(errs, fmt.Errorf("duplicate program %q", p.Name))
		}
		seen[p.Name] = true
	}
	return errors.Join(errs...)
}

// SetSeed replaces the deme seed and recomputes derived values, so an
// evaluation seed left at 0 follows it.
func (c *Config) SetSeed(seed int64) {
	c.Deme.Seed = seed
	c.computeDerived()
}

// Program returns the catalog entry called name.
func (c *Config) Program(name string) (ProgramConfig, bool) {
	i, ok := c.Derived.ProgramIndex[name]
	if !ok {
		return ProgramConfig{}, false
	}
	return c.Programs[i], true
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
