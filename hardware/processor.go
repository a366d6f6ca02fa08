package hardware

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/pthm-cable/deme/program"
)

var (
	// ErrNoProgram is returned when a thread is spawned before a program is installed.
	ErrNoProgram = errors.New("hardware: no program installed")
	// ErrBadFunction is returned for entry points outside the program.
	ErrBadFunction = errors.New("hardware: function index out of range")
	// ErrThreadLimit is returned when the processor already runs MaxThreads threads.
	ErrThreadLimit = errors.New("hardware: thread limit reached")
)

// Config holds processor limits.
type Config struct {
	MaxThreads       int     // Concurrent threads per processor
	MaxCallDepth     int     // Call stack depth per thread
	MinBindThreshold float64 // Minimum affinity match for a call/event to bind
}

// DefaultConfig returns the standard processor limits.
func DefaultConfig() Config {
	return Config{
		MaxThreads:       16,
		MaxCallDepth:     128,
		MinBindThreshold: 0.5,
	}
}

// Dispatcher routes an event triggered by src to other processors.
type Dispatcher func(src *Processor, ev Event)

type blockKind uint8

const (
	blockIf blockKind = iota
	blockLoop
)

type block struct {
	kind  blockKind
	begin int // index of the opening instruction
	end   int // index of the matching close (function length if none)
}

type callState struct {
	fn, ip int
	local  Memory
	input  Memory
	output Memory
	blocks []block
}

type thread struct {
	stack []*callState
	dead  bool
}

func (t *thread) top() *callState {
	return t.stack[len(t.stack)-1]
}

// Processor executes one program with any number of threads up to MaxThreads.
type Processor struct {
	cfg    Config
	lib    *InstLib
	events *EventLib
	rng    *rand.Rand

	prog     program.Program
	threads  []*thread
	queue    []Event
	shared   Memory
	traits   []float64
	dispatch Dispatcher

	cur      *thread
	executed uint64
}

// NewProcessor creates a processor. rng is shared with the owner and is used
// to break ties between equally good affinity bindings.
func NewProcessor(lib *InstLib, events *EventLib, rng *rand.Rand, cfg Config) *Processor {
	return &Processor{
		cfg:    cfg,
		lib:    lib,
		events: events,
		rng:    rng,
		shared: make(Memory),
	}
}

// SetDispatcher installs the owner's event router.
func (p *Processor) SetDispatcher(d Dispatcher) {
	p.dispatch = d
}

// SetProgram installs prog and resets execution state.
func (p *Processor) SetProgram(prog program.Program) {
	p.prog = prog
	p.ResetState()
}

// Program returns the installed program.
func (p *Processor) Program() program.Program {
	return p.prog
}

// InstLib returns the processor's instruction library.
func (p *Processor) InstLib() *InstLib {
	return p.lib
}

// ResetState clears threads, queued events and shared memory.
// The program and traits are kept.
func (p *Processor) ResetState() {
	p.threads = nil
	p.queue = nil
	clear(p.shared)
	p.cur = nil
	p.executed = 0
}

// Trait returns trait id, or 0 if it was never set.
func (p *Processor) Trait(id int) float64 {
	if id < 0 || id >= len(p.traits) {
		return 0
	}
	return p.traits[id]
}

// SetTrait sets trait id.
func (p *Processor) SetTrait(id int, v float64) {
	for id >= len(p.traits) {
		p.traits = append(p.traits, 0)
	}
	p.traits[id] = v
}

// QueueEvent appends ev to the pending event queue. Events are consumed at
// the start of the next SingleProcess.
func (p *Processor) QueueEvent(ev Event) {
	p.queue = append(p.queue, ev)
}

// TriggerEvent hands ev to the owner's dispatcher.
func (p *Processor) TriggerEvent(ev Event) {
	if p.dispatch != nil {
		p.dispatch(p, ev)
	}
}

// SpawnThread starts a thread at function fn with a copy of input as its
// input memory.
func (p *Processor) SpawnThread(fn int, input Memory) error {
	if p.prog.Empty() {
		return ErrNoProgram
	}
	if fn < 0 || fn >= len(p.prog) {
		return fmt.Errorf("%w: %d of %d", ErrBadFunction, fn, len(p.prog))
	}
	if len(p.threads) >= p.cfg.MaxThreads {
		return ErrThreadLimit
	}
	p.threads = append(p.threads, &thread{
		stack: []*callState{newCallState(fn, input)},
	})
	return nil
}

// SpawnByAffinity starts a thread on the function best bound to aff.
// It reports whether a thread was started.
func (p *Processor) SpawnByAffinity(aff program.Affinity, input Memory) bool {
	fn, ok := p.FindBinding(aff)
	if !ok {
		return false
	}
	return p.SpawnThread(fn, input) == nil
}

// FindBinding returns the function whose affinity best matches aff, at or
// above MinBindThreshold. Ties are broken uniformly at random.
func (p *Processor) FindBinding(aff program.Affinity) (int, bool) {
	best := -1.0
	var ties []int
	for i, fn := range p.prog {
		m := fn.Affinity.Match(aff)
		if m < p.cfg.MinBindThreshold {
			continue
		}
		switch {
		case m > best:
			best = m
			ties = append(ties[:0], i)
		case m == best:
			ties = append(ties, i)
		}
	}
	switch len(ties) {
	case 0:
		return 0, false
	case 1:
		return ties[0], true
	default:
		return ties[p.rng.Intn(len(ties))], true
	}
}

// SingleProcess advances the processor by one quantum: queued events are
// handled, every thread alive at the start executes one instruction, and
// finished threads are removed.
func (p *Processor) SingleProcess() {
	if len(p.queue) > 0 {
		pending := p.queue
		p.queue = nil
		for _, ev := range pending {
			if h := p.events.Handler(ev.Kind); h != nil {
				h(p, ev)
			}
		}
	}

	n := len(p.threads)
	for i := 0; i < n; i++ {
		t := p.threads[i]
		if t.dead {
			continue
		}
		p.cur = t
		p.stepThread(t)
	}
	p.cur = nil

	alive := p.threads[:0]
	for _, t := range p.threads {
		if !t.dead {
			alive = append(alive, t)
		}
	}
	clear(p.threads[len(alive):])
	p.threads = alive
}

// stepThread unwinds finished functions and blocks, then executes one instruction.
func (p *Processor) stepThread(t *thread) {
	for {
		st := t.top()
		if st.ip < len(p.prog[st.fn].Instructions) {
			break
		}
		if len(st.blocks) > 0 {
			b := st.blocks[len(st.blocks)-1]
			st.blocks = st.blocks[:len(st.blocks)-1]
			if b.kind == blockLoop {
				st.ip = b.begin
			}
			continue
		}
		p.returnCall(t)
		if t.dead {
			return
		}
	}

	st := t.top()
	inst := p.prog[st.fn].Instructions[st.ip]
	st.ip++
	p.executed++
	if p.lib.Valid(inst.ID) {
		p.lib.Def(inst.ID).Fn(p, inst)
	}
}

func (p *Processor) returnCall(t *thread) {
	callee := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]
	if len(t.stack) == 0 {
		t.dead = true
		return
	}
	caller := t.top()
	for k, v := range callee.output {
		caller.local[k] = v
	}
}

func newCallState(fn int, input Memory) *callState {
	in := make(Memory, len(input))
	for k, v := range input {
		in[k] = v
	}
	return &callState{
		fn:     fn,
		local:  make(Memory),
		input:  in,
		output: make(Memory),
	}
}

// state returns the current call state of the executing thread.
func (p *Processor) state() *callState {
	return p.cur.top()
}

// Local returns the local memory of the executing thread's current call.
// Only valid while an instruction is executing.
func (p *Processor) Local() Memory {
	return p.state().local
}

// Shared returns the processor-wide shared memory.
func (p *Processor) Shared() Memory {
	return p.shared
}

// ThreadCount returns the number of live threads.
func (p *Processor) ThreadCount() int {
	return len(p.threads)
}

// QueueLen returns the number of events waiting to be handled.
func (p *Processor) QueueLen() int {
	return len(p.queue)
}

// Executed returns the number of instructions executed since the last reset.
func (p *Processor) Executed() uint64 {
	return p.executed
}

// ThreadInfo is a read-only view of one thread.
type ThreadInfo struct {
	Function    int
	Instruction int
	Depth       int
	Local       Memory
}

// Threads returns a snapshot of every live thread's current call.
func (p *Processor) Threads() []ThreadInfo {
	out := make([]ThreadInfo, 0, len(p.threads))
	for _, t := range p.threads {
		st := t.top()
		out = append(out, ThreadInfo{
			Function:    st.fn,
			Instruction: st.ip,
			Depth:       len(t.stack),
			Local:       st.local.Clone(),
		})
	}
	return out
}
