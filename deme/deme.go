// Package deme simulates a toroidal grid of virtual processors that all run
// one shared program and talk to their spatial neighbours by message passing.
package deme

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/deme/components"
	"github.com/pthm-cable/deme/hardware"
)

var (
	// ErrNotLoaded is returned when advancing a deme that has no agent loaded.
	ErrNotLoaded = errors.New("deme: no agent loaded")
	// ErrEmptyProgram is returned when loading an agent whose program has no functions.
	ErrEmptyProgram = errors.New("deme: agent program is empty")
)

// Deme is a width × height toroidal grid of processors addressed by (x, y)
// with linear index y*width + x. Processors are ECS entities carrying a
// Location and a Core; knocked-out processors also carry the KnockedOut tag.
type Deme struct {
	width, height int
	rng           *rand.Rand
	lib           *hardware.InstLib
	events        *hardware.EventLib

	world     *ecs.World
	unitMap   *ecs.Map2[components.Location, components.Core]
	knockMap  *ecs.Map[components.KnockedOut]
	unitQuery *ecs.Filter2[components.Location, components.Core]

	units []ecs.Entity // Indexed by linear processor index
	cpus  []*hardware.Processor

	dispatch map[hardware.EventKind]DispatchFunc

	agent  *Agent
	loaded bool
	tick   uint64
}

// New allocates a deme. rng is shared by the deme and all its processors.
// The Message event kind of events is routed through DispatchMessage.
func New(width, height int, rng *rand.Rand, lib *hardware.InstLib, events *hardware.EventLib, hwCfg hardware.Config) *Deme {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("deme: invalid dimensions %dx%d", width, height))
	}

	world := ecs.NewWorld()
	d := &Deme{
		width:     width,
		height:    height,
		rng:       rng,
		lib:       lib,
		events:    events,
		world:     world,
		unitMap:   ecs.NewMap2[components.Location, components.Core](world),
		knockMap:  ecs.NewMap[components.KnockedOut](world),
		unitQuery: ecs.NewFilter2[components.Location, components.Core](world),
		units:     make([]ecs.Entity, width*height),
		cpus:      make([]*hardware.Processor, width*height),
		dispatch:  make(map[hardware.EventKind]DispatchFunc),
	}

	for i := range d.units {
		cpu := hardware.NewProcessor(lib, events, rng, hwCfg)
		cpu.SetDispatcher(d.Dispatch)
		loc := components.Location{X: i % width, Y: i / width}
		core := components.Core{Index: i, CPU: cpu}
		d.units[i] = d.unitMap.NewEntity(&loc, &core)
		d.cpus[i] = cpu
		d.resetTraits(cpu, loc)
	}

	if kind, ok := events.Kind(hardware.MessageEvent); ok {
		d.RegisterDispatch(kind, (*Deme).DispatchMessage)
	}

	return d
}

// resetTraits restores a processor's traits to their construction values.
func (d *Deme) resetTraits(cpu *hardware.Processor, loc components.Location) {
	cpu.SetTrait(TraitRoleID, 0)
	cpu.SetTrait(TraitXLoc, float64(loc.X))
	cpu.SetTrait(TraitYLoc, float64(loc.Y))
}

// LoadAgent resets the deme, installs the agent's program on every processor
// and spawns one thread per processor at function 0.
func (d *Deme) LoadAgent(agent *Agent) error {
	if agent == nil || agent.Program.Empty() {
		return ErrEmptyProgram
	}
	d.Reset()
	for i, cpu := range d.cpus {
		cpu.SetProgram(agent.Program)
		if err := cpu.SpawnThread(0, nil); err != nil {
			return fmt.Errorf("spawning main thread on processor %d: %w", i, err)
		}
	}
	d.agent = agent
	d.loaded = true
	slog.Debug("agent loaded",
		"functions", len(agent.Program),
		"instructions", agent.Program.Size(),
		"processors", len(d.cpus),
	)
	return nil
}

// SingleAdvance executes one quantum on every processor that is not knocked
// out, in index order. Messages sent by processor i are visible to any
// processor j > i within the same tick.
func (d *Deme) SingleAdvance() error {
	if !d.loaded {
		return ErrNotLoaded
	}
	for i, cpu := range d.cpus {
		if d.knockMap.Has(d.units[i]) {
			continue
		}
		cpu.SingleProcess()
	}
	d.tick++
	return nil
}

// Advance calls SingleAdvance t times.
func (d *Deme) Advance(t int) error {
	for i := 0; i < t; i++ {
		if err := d.SingleAdvance(); err != nil {
			return err
		}
	}
	return nil
}

// Reset drops the agent and clears every processor's execution state and
// role. Knockouts are kept.
func (d *Deme) Reset() {
	d.agent = nil
	d.loaded = false
	d.tick = 0
	query := d.unitQuery.Query()
	for query.Next() {
		loc, core := query.Get()
		core.CPU.ResetState()
		d.resetTraits(core.CPU, *loc)
	}
}

// ToggleKnockout flips the knockout state of processor id and returns the new
// state. Ids outside the grid are ignored and report false.
func (d *Deme) ToggleKnockout(id int) bool {
	if id < 0 || id >= len(d.units) {
		return false
	}
	e := d.units[id]
	if d.knockMap.Has(e) {
		d.knockMap.Remove(e)
		return false
	}
	d.knockMap.Add(e, &components.KnockedOut{})
	return true
}

// IsKnockedOut reports whether processor id is knocked out.
func (d *Deme) IsKnockedOut(id int) bool {
	if id < 0 || id >= len(d.units) {
		return false
	}
	return d.knockMap.Has(d.units[id])
}

// Knockouts returns the knocked-out processor indices in ascending order.
func (d *Deme) Knockouts() []int {
	var out []int
	for i, e := range d.units {
		if d.knockMap.Has(e) {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

// ClearKnockouts restores every processor.
func (d *Deme) ClearKnockouts() {
	for _, e := range d.units {
		if d.knockMap.Has(e) {
			d.knockMap.Remove(e)
		}
	}
}

// Width returns the grid width.
func (d *Deme) Width() int { return d.width }

// Height returns the grid height.
func (d *Deme) Height() int { return d.height }

// Size returns the number of processors.
func (d *Deme) Size() int { return len(d.cpus) }

// Tick returns the number of ticks since the agent was loaded.
func (d *Deme) Tick() uint64 { return d.tick }

// Loaded reports whether an agent is loaded.
func (d *Deme) Loaded() bool { return d.loaded }

// Agent returns the loaded agent, or nil.
func (d *Deme) Agent() *Agent { return d.agent }

// InstLib returns the instruction library shared by the processors.
func (d *Deme) InstLib() *hardware.InstLib { return d.lib }

// Processor returns the processor at linear index id.
func (d *Deme) Processor(id int) *hardware.Processor {
	return d.cpus[id]
}

// RoleIDs returns every processor's role_id trait in index order.
func (d *Deme) RoleIDs() []float64 {
	out := make([]float64, len(d.cpus))
	for i, cpu := range d.cpus {
		out[i] = cpu.Trait(TraitRoleID)
	}
	return out
}

// CellState is a per-processor view used by telemetry and fitness functions.
type CellState struct {
	Index      int
	X, Y       int
	RoleID     float64
	KnockedOut bool
	Threads    int
	Queued     int
}

// Snapshot returns the state of every processor in index order.
func (d *Deme) Snapshot() []CellState {
	out := make([]CellState, len(d.cpus))
	query := d.unitQuery.Query()
	for query.Next() {
		loc, core := query.Get()
		out[core.Index] = CellState{
			Index:      core.Index,
			X:          loc.X,
			Y:          loc.Y,
			RoleID:     core.CPU.Trait(TraitRoleID),
			KnockedOut: d.knockMap.Has(query.Entity()),
			Threads:    core.CPU.ThreadCount(),
			Queued:     core.CPU.QueueLen(),
		}
	}
	return out
}
