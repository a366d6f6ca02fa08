package fitness

import (
	"log/slog"
	"math/rand"

	"github.com/pthm-cable/deme/deme"
	"github.com/pthm-cable/deme/hardware"
	"github.com/pthm-cable/deme/program"
)

// Options configures an Evaluator.
type Options struct {
	Width, Height int
	Seed          int64
	Ticks         int
	Hardware      hardware.Config
	Func          Func
	Lib           *hardware.InstLib  // nil = deme.NewInstLib()
	Events        *hardware.EventLib // nil = deme.NewEventLib()
}

// Evaluator scores programs on its own deme. The random source is reseeded
// before every evaluation so identical programs score identically.
type Evaluator struct {
	deme  *deme.Deme
	rng   *rand.Rand
	seed  int64
	ticks int
	fn    Func
	evals int

	last deme.Agent
}

// NewEvaluator allocates the evaluation deme.
func NewEvaluator(opts Options) *Evaluator {
	lib := opts.Lib
	if lib == nil {
		lib = deme.NewInstLib()
	}
	events := opts.Events
	if events == nil {
		events = deme.NewEventLib()
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	return &Evaluator{
		deme:  deme.New(opts.Width, opts.Height, rng, lib, events, opts.Hardware),
		rng:   rng,
		seed:  opts.Seed,
		ticks: opts.Ticks,
		fn:    opts.Func,
	}
}

// Evaluate loads p as a fresh agent, runs the tick budget and scores the
// result. An empty program scores 0 without being loaded.
func (e *Evaluator) Evaluate(p program.Program) float64 {
	e.evals++
	if p.Empty() {
		slog.Debug("empty program scored without loading")
		return 0
	}

	e.rng.Seed(e.seed)
	agent := deme.NewAgent(p)
	if err := e.deme.LoadAgent(agent); err != nil {
		slog.Error("loading agent for evaluation", "error", err)
		return 0
	}
	if err := e.deme.Advance(e.ticks); err != nil {
		slog.Error("advancing evaluation deme", "error", err)
		return 0
	}
	score := e.fn(e.deme, agent)
	e.deme.Reset()
	e.last = *agent
	e.last.Program = nil
	return score
}

// Deme returns the evaluation deme, e.g. to apply processor knockouts.
func (e *Evaluator) Deme() *deme.Deme { return e.deme }

// Evaluations returns how many times Evaluate was called.
func (e *Evaluator) Evaluations() int { return e.evals }

// LastAgent returns the counters of the most recent non-empty evaluation.
// The program is not kept.
func (e *Evaluator) LastAgent() deme.Agent { return e.last }
