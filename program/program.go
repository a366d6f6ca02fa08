// Package program defines genetic programs, program coordinates, and the
// knockout machinery that derives filtered programs from a base program.
package program

// NumArgs is the number of integer arguments carried by every instruction.
const NumArgs = 3

// Instruction is a single program step. ID is resolved through an
// instruction library owned by the hardware that executes the program.
type Instruction struct {
	ID       int
	Args     [NumArgs]int
	Affinity Affinity
}

// NewInstruction creates an instruction with the given opcode and arguments.
// Missing arguments are zero; extra arguments are ignored.
func NewInstruction(id int, args ...int) Instruction {
	inst := Instruction{ID: id}
	copy(inst.Args[:], args)
	return inst
}

// Function is an ordered instruction sequence tagged with an affinity.
type Function struct {
	Affinity     Affinity
	Instructions []Instruction
}

// Size returns the number of instructions in the function.
func (f Function) Size() int {
	return len(f.Instructions)
}

// Program is an ordered sequence of functions. A function's position is its address.
type Program []Function

// Empty reports whether the program has no functions.
// Empty programs cannot be executed.
func (p Program) Empty() bool {
	return len(p) == 0
}

// Size returns the total number of instructions across all functions.
func (p Program) Size() int {
	n := 0
	for _, fn := range p {
		n += len(fn.Instructions)
	}
	return n
}

// FunctionSizes returns the instruction count of every function.
func (p Program) FunctionSizes() []int {
	sizes := make([]int, len(p))
	for i, fn := range p {
		sizes[i] = len(fn.Instructions)
	}
	return sizes
}

// Valid reports whether c addresses an instruction (or whole function) in p.
func (p Program) Valid(c Coord) bool {
	if c.Function < 0 || c.Function >= len(p) {
		return false
	}
	if c.Instruction == WholeFunction {
		return true
	}
	return c.Instruction >= 0 && c.Instruction < len(p[c.Function].Instructions)
}

// At returns the instruction at c. c must address a single instruction.
func (p Program) At(c Coord) Instruction {
	return p[c.Function].Instructions[c.Instruction]
}

// Clone returns a deep copy of the program.
func (p Program) Clone() Program {
	if p == nil {
		return nil
	}
	out := make(Program, len(p))
	for i, fn := range p {
		out[i] = Function{
			Affinity:     fn.Affinity,
			Instructions: append([]Instruction(nil), fn.Instructions...),
		}
	}
	return out
}

// Equal reports whether two programs match function-for-function,
// instruction-for-instruction and affinity-for-affinity.
func (p Program) Equal(other Program) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i].Affinity != other[i].Affinity {
			return false
		}
		if len(p[i].Instructions) != len(other[i].Instructions) {
			return false
		}
		for j := range p[i].Instructions {
			if p[i].Instructions[j] != other[i].Instructions[j] {
				return false
			}
		}
	}
	return true
}

// Builder appends functions and instructions to a program in order.
type Builder struct {
	prog Program
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Function starts a new function with the given affinity.
func (b *Builder) Function(aff Affinity) *Builder {
	b.prog = append(b.prog, Function{Affinity: aff})
	return b
}

// Inst appends an instruction to the most recently started function.
// A function with a zero affinity is started if none exists yet.
func (b *Builder) Inst(id int, args ...int) *Builder {
	return b.InstAff(id, Affinity{}, args...)
}

// InstAff appends an instruction carrying an affinity.
func (b *Builder) InstAff(id int, aff Affinity, args ...int) *Builder {
	if len(b.prog) == 0 {
		b.Function(Affinity{})
	}
	inst := NewInstruction(id, args...)
	inst.Affinity = aff
	last := &b.prog[len(b.prog)-1]
	last.Instructions = append(last.Instructions, inst)
	return b
}

// Program returns the built program.
func (b *Builder) Program() Program {
	return b.prog
}
