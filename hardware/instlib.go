// Package hardware implements an event-driven virtual processor that
// executes genetic programs: threads with call stacks, register memories,
// trait storage, and affinity-based binding of calls and events to functions.
package hardware

import (
	"fmt"
	"maps"

	"github.com/pthm-cable/deme/program"
)

// Instruction properties.
const (
	PropAffinity   = "affinity"    // Instruction uses its affinity argument
	PropBlockDef   = "block_def"   // Instruction opens a block closed by a block_close
	PropBlockClose = "block_close" // Instruction closes the innermost block
)

// InstFunc executes one instruction on the processor's current thread.
type InstFunc func(p *Processor, inst program.Instruction)

// InstDef describes one opcode.
type InstDef struct {
	Name        string
	NumArgs     int
	Fn          InstFunc
	Description string
	Properties  map[string]bool
}

// InstLib is an ordered table of opcodes. An opcode's ID is its position.
type InstLib struct {
	defs   []InstDef
	byName map[string]int
}

// NewInstLib creates an empty instruction library.
func NewInstLib() *InstLib {
	return &InstLib{byName: make(map[string]int)}
}

// Add registers an opcode and returns its ID. Registering a name twice panics.
func (l *InstLib) Add(name string, fn InstFunc, numArgs int, desc string, props ...string) int {
	if _, dup := l.byName[name]; dup {
		panic(fmt.Sprintf("hardware: instruction %q already registered", name))
	}
	def := InstDef{
		Name:        name,
		NumArgs:     numArgs,
		Fn:          fn,
		Description: desc,
		Properties:  make(map[string]bool, len(props)),
	}
	for _, prop := range props {
		def.Properties[prop] = true
	}
	id := len(l.defs)
	l.defs = append(l.defs, def)
	l.byName[name] = id
	return id
}

// ID returns the opcode ID for name.
func (l *InstLib) ID(name string) (int, bool) {
	id, ok := l.byName[name]
	return id, ok
}

// MustID is like ID but panics if name is unknown.
func (l *InstLib) MustID(name string) int {
	id, ok := l.byName[name]
	if !ok {
		panic(fmt.Sprintf("hardware: unknown instruction %q", name))
	}
	return id
}

// Inst builds an instruction by opcode name. Panics if name is unknown.
func (l *InstLib) Inst(name string, args ...int) program.Instruction {
	return program.NewInstruction(l.MustID(name), args...)
}

// InstAff builds an instruction with an affinity by opcode name.
func (l *InstLib) InstAff(name string, aff program.Affinity, args ...int) program.Instruction {
	inst := l.Inst(name, args...)
	inst.Affinity = aff
	return inst
}

// Def returns the definition of opcode id.
func (l *InstLib) Def(id int) InstDef {
	return l.defs[id]
}

// Valid reports whether id is a registered opcode.
func (l *InstLib) Valid(id int) bool {
	return id >= 0 && id < len(l.defs)
}

// Name returns the name of opcode id, or "?" for unknown IDs.
func (l *InstLib) Name(id int) string {
	if !l.Valid(id) {
		return "?"
	}
	return l.defs[id].Name
}

// NumArgs returns the number of meaningful arguments of opcode id.
func (l *InstLib) NumArgs(id int) int {
	if !l.Valid(id) {
		return 0
	}
	return l.defs[id].NumArgs
}

// HasProperty reports whether opcode id carries prop.
func (l *InstLib) HasProperty(id int, prop string) bool {
	if !l.Valid(id) {
		return false
	}
	return l.defs[id].Properties[prop]
}

// Size returns the number of registered opcodes.
func (l *InstLib) Size() int {
	return len(l.defs)
}

// Names returns all opcode names in ID order.
func (l *InstLib) Names() []string {
	names := make([]string, len(l.defs))
	for i, d := range l.defs {
		names[i] = d.Name
	}
	return names
}

// Clone returns a copy that can be extended independently.
func (l *InstLib) Clone() *InstLib {
	out := &InstLib{
		defs:   make([]InstDef, len(l.defs)),
		byName: maps.Clone(l.byName),
	}
	for i, d := range l.defs {
		d.Properties = maps.Clone(d.Properties)
		out.defs[i] = d
	}
	return out
}

// Format renders an instruction as "Name arg..." using the opcode's
// argument count, appending the affinity for affinity instructions.
func (l *InstLib) Format(inst program.Instruction) string {
	s := l.Name(inst.ID)
	if l.HasProperty(inst.ID, PropAffinity) {
		s += " " + inst.Affinity.String()
	}
	for i := 0; i < l.NumArgs(inst.ID) && i < program.NumArgs; i++ {
		s += fmt.Sprintf(" %d", inst.Args[i])
	}
	return s
}
