// Package landscape measures how much each instruction of a program
// contributes to its fitness by knocking out one instruction at a time.
package landscape

import (
	"log/slog"
	"math"
	"time"

	"github.com/pthm-cable/deme/program"
)

// MissingFitness is returned for loci with no recorded fitness.
const MissingFitness = -math.MaxFloat64

// FitnessFunc scores a program. It must not retain p, which is mutated
// between calls.
type FitnessFunc func(p program.Program) float64

// Map holds per-locus fitness values plus the baseline at program.Sentinel.
type Map map[program.Coord]float64

// Get returns the fitness recorded at c, or MissingFitness.
func (m Map) Get(c program.Coord) float64 {
	if v, ok := m[c]; ok {
		return v
	}
	return MissingFitness
}

// Lookup returns the fitness recorded at c and whether it exists.
func (m Map) Lookup(c program.Coord) (float64, bool) {
	v, ok := m[c]
	return v, ok
}

// Baseline returns the unperturbed fitness, or MissingFitness.
func (m Map) Baseline() float64 {
	return m.Get(program.Sentinel)
}

// Delta returns the fitness change caused by knocking out c.
func (m Map) Delta(c program.Coord) (float64, bool) {
	base, ok := m[program.Sentinel]
	if !ok {
		return 0, false
	}
	v, ok := m[c]
	if !ok || c == program.Sentinel {
		return 0, false
	}
	return v - base, true
}

// Len returns the number of entries, baseline included.
func (m Map) Len() int {
	return len(m)
}

// Loci returns the perturbed coordinates in (function, instruction) order.
func (m Map) Loci() []program.Coord {
	out := make([]program.Coord, 0, len(m))
	for c := range m {
		if c != program.Sentinel {
			out = append(out, c)
		}
	}
	program.SortCoords(out)
	return out
}

// Clear removes every entry.
func (m Map) Clear() {
	clear(m)
}

// Result is the outcome of one landscaping pass.
type Result struct {
	Derived   program.Program
	Positions program.PositionMap
	Map       Map
}

// Landscaper runs single-instruction knockout sweeps.
type Landscaper struct {
	nop program.Instruction

	// OnLocus, if set, is called after every evaluated locus with the
	// number of loci done and the total.
	OnLocus func(c program.Coord, fitness float64, done, total int)
}

// NewLandscaper creates a landscaper that knocks instructions out by
// replacing them with nop.
func NewLandscaper(nop program.Instruction) *Landscaper {
	return &Landscaper{nop: nop}
}

// Landscape builds the derived program for base under knockouts, scores it,
// then scores every single-instruction knockout of it. Whole functions are
// never perturbed. The returned Derived program is unchanged by the sweep.
func (l *Landscaper) Landscape(base program.Program, knockouts *program.KnockoutSet, eval FitnessFunc) Result {
	start := time.Now()
	derived, positions := program.Build(base, knockouts)
	res := Result{
		Derived:   derived,
		Positions: positions,
		Map:       make(Map, derived.Size()+1),
	}

	res.Map[program.Sentinel] = eval(derived)

	work := derived.Clone()
	total := work.Size()
	done := 0
	for f := range work {
		insts := work[f].Instructions
		for i := range insts {
			orig := insts[i]
			insts[i] = l.nop
			fit := eval(work)
			insts[i] = orig

			c := program.Coord{Function: f, Instruction: i}
			res.Map[c] = fit
			done++
			slog.Debug("locus evaluated", "locus", c.String(), "fitness", fit)
			if l.OnLocus != nil {
				l.OnLocus(c, fit, done, total)
			}
		}
	}

	slog.Info("landscape complete",
		"loci", total,
		"baseline", res.Map.Baseline(),
		"elapsed", time.Since(start),
	)
	return res
}
