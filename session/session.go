// Package session holds the driver state of an interactive deme run: the
// program catalog, the selected program with its knockouts, the derived
// program, the latest landscape and the two demes (interactive and
// evaluation).
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/pthm-cable/deme/config"
	"github.com/pthm-cable/deme/deme"
	"github.com/pthm-cable/deme/fitness"
	"github.com/pthm-cable/deme/hardware"
	"github.com/pthm-cable/deme/landscape"
	"github.com/pthm-cable/deme/program"
)

var (
	// ErrUnknownProgram is returned for names missing from the catalog.
	ErrUnknownProgram = errors.New("session: unknown program")
	// ErrNoSelection is returned when an operation needs a selected program.
	ErrNoSelection = errors.New("session: no program selected")
	// ErrUnknownFitness is returned when the configured fitness function is not registered.
	ErrUnknownFitness = errors.New("session: unknown fitness function")
)

// Session owns all mutable state of one run. It is not safe for
// concurrent use; run independent sessions instead.
type Session struct {
	cfg    *config.Config
	lib    *hardware.InstLib
	events *hardware.EventLib

	catalog map[string]program.Program

	selected  string
	base      program.Program
	knockouts *program.KnockoutSet
	derived   program.Program
	positions program.PositionMap
	landscape landscape.Map

	deme       *deme.Deme
	evaluator  *fitness.Evaluator
	landscaper *landscape.Landscaper
}

// New builds a session from cfg, compiling the program catalog and
// allocating the interactive and evaluation demes.
func New(cfg *config.Config) (*Session, error) {
	lib := deme.NewInstLib()
	events := deme.NewEventLib()

	fn, ok := fitness.NewRegistry().New(cfg.Evaluation.Fitness, fitness.Params{
		MaxRoleID: cfg.Evaluation.MaxRoleID,
	})
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFitness, cfg.Evaluation.Fitness)
	}

	hw := HardwareConfig(cfg)
	s := &Session{
		cfg:       cfg,
		lib:       lib,
		events:    events,
		catalog:   make(map[string]program.Program, len(cfg.Programs)),
		knockouts: program.NewKnockoutSet(),
		positions: program.PositionMap{},
		landscape: landscape.Map{},
		deme: deme.New(cfg.Deme.Width, cfg.Deme.Height,
			rand.New(rand.NewSource(cfg.Deme.Seed)), lib, events, hw),
		evaluator: fitness.NewEvaluator(fitness.Options{
			Width:    cfg.Derived.EvalWidth,
			Height:   cfg.Derived.EvalHeight,
			Seed:     cfg.Derived.EvalSeed,
			Ticks:    cfg.Evaluation.Ticks,
			Hardware: hw,
			Func:     fn,
			Lib:      lib,
			Events:   events,
		}),
		landscaper: landscape.NewLandscaper(lib.Inst("Nop")),
	}

	for _, pc := range cfg.Programs {
		p, err := Compile(pc, lib)
		if err != nil {
			return nil, fmt.Errorf("compiling catalog: %w", err)
		}
		s.catalog[pc.Name] = p
	}
	return s, nil
}

// HardwareConfig converts the hardware section of cfg.
func HardwareConfig(cfg *config.Config) hardware.Config {
	return hardware.Config{
		MaxThreads:       cfg.Hardware.MaxThreads,
		MaxCallDepth:     cfg.Hardware.MaxCallDepth,
		MinBindThreshold: cfg.Hardware.MinBindThreshold,
	}
}

// AddProgram adds p to the catalog under name, replacing any previous
// entry. The selection is not changed.
func (s *Session) AddProgram(name string, p program.Program) {
	s.catalog[name] = p.Clone()
}

// Programs returns the catalog names, sorted.
func (s *Session) Programs() []string {
	names := make([]string, 0, len(s.catalog))
	for name := range s.catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select makes name the base program. Knockouts and the landscape are
// cleared and the derived program is rebuilt.
func (s *Session) Select(name string) error {
	p, ok := s.catalog[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProgram, name)
	}
	s.selected = name
	s.base = p.Clone()
	s.knockouts.Clear()
	s.rebuild()
	slog.Info("program selected",
		"name", name,
		"functions", len(s.base),
		"instructions", s.base.Size(),
	)
	return nil
}

// rebuild derives the program from the base and the current knockouts and
// starts a new, empty landscape. Results already handed out keep their map.
func (s *Session) rebuild() {
	s.derived, s.positions = program.Build(s.base, s.knockouts)
	s.landscape = landscape.Map{}
}

// ToggleFunctionKnockout flips the knockout of base function f and reports
// the new state.
func (s *Session) ToggleFunctionKnockout(f int) bool {
	on := s.knockouts.ToggleFunction(f)
	s.rebuild()
	slog.Debug("function knockout toggled", "function", f, "knocked_out", on)
	return on
}

// ToggleInstructionKnockout flips the knockout of base instruction (f, i)
// and reports the new state.
func (s *Session) ToggleInstructionKnockout(f, i int) bool {
	on := s.knockouts.ToggleInstruction(f, i)
	s.rebuild()
	slog.Debug("instruction knockout toggled", "function", f, "instruction", i, "knocked_out", on)
	return on
}

// ToggleProcessorKnockout flips the knockout of processor id on the
// interactive deme. The evaluation deme is not affected.
func (s *Session) ToggleProcessorKnockout(id int) bool {
	return s.deme.ToggleKnockout(id)
}

// Load installs the derived program on the interactive deme as a new agent.
func (s *Session) Load() error {
	if s.selected == "" {
		return ErrNoSelection
	}
	if err := s.deme.LoadAgent(deme.NewAgent(s.derived.Clone())); err != nil {
		return fmt.Errorf("loading %q: %w", s.selected, err)
	}
	return nil
}

// Advance runs the interactive deme for t ticks.
func (s *Session) Advance(t int) error {
	return s.deme.Advance(t)
}

// Landscape runs a knockout sweep of the selected program on the
// evaluation deme and stores the resulting map.
func (s *Session) Landscape() (landscape.Result, error) {
	if s.selected == "" {
		return landscape.Result{}, ErrNoSelection
	}
	res := s.landscaper.Landscape(s.base, s.knockouts, s.evaluator.Evaluate)
	s.derived, s.positions = res.Derived, res.Positions
	s.landscape = res.Map
	slog.Info("landscape summary",
		"program", s.selected,
		"summary", landscape.Summarize(res.Map, s.cfg.Evaluation.NeutralEpsilon),
	)
	return res, nil
}

// LandscapeProgram selects name and landscapes it with no knockouts.
func (s *Session) LandscapeProgram(name string) (landscape.Result, error) {
	if err := s.Select(name); err != nil {
		return landscape.Result{}, err
	}
	return s.Landscape()
}

// SetLandscapeProgress installs a per-locus progress callback.
func (s *Session) SetLandscapeProgress(fn func(c program.Coord, fitness float64, done, total int)) {
	s.landscaper.OnLocus = fn
}

// Summary summarizes the current landscape.
func (s *Session) Summary() landscape.Summary {
	return landscape.Summarize(s.landscape, s.cfg.Evaluation.NeutralEpsilon)
}

// Selected returns the selected program name, or "".
func (s *Session) Selected() string { return s.selected }

// Base returns the selected program.
func (s *Session) Base() program.Program { return s.base }

// Derived returns the base program with knockouts applied.
func (s *Session) Derived() program.Program { return s.derived }

// Positions maps base coordinates to derived coordinates.
func (s *Session) Positions() program.PositionMap { return s.positions }

// LandscapeMap returns the latest landscape, empty if stale.
func (s *Session) LandscapeMap() landscape.Map { return s.landscape }

// Knockouts returns the active program knockouts. Mutate them only through
// the toggle methods.
func (s *Session) Knockouts() *program.KnockoutSet { return s.knockouts }

// Deme returns the interactive deme.
func (s *Session) Deme() *deme.Deme { return s.deme }

// Evaluator returns the evaluator used for landscaping.
func (s *Session) Evaluator() *fitness.Evaluator { return s.evaluator }

// InstLib returns the session's instruction library.
func (s *Session) InstLib() *hardware.InstLib { return s.lib }

// Config returns the session configuration.
func (s *Session) Config() *config.Config { return s.cfg }
