package program

import (
	"fmt"
	"sort"
)

// WholeFunction is the instruction index used to address an entire function.
const WholeFunction = -1

// Coord addresses a function or an instruction within a program.
type Coord struct {
	Function    int
	Instruction int
}

// Sentinel is the reserved coordinate: the "not present" PositionMap result
// and the LandscapeMap baseline key.
var Sentinel = Coord{Function: -1, Instruction: -1}

// FunctionCoord addresses the whole function f.
func FunctionCoord(f int) Coord {
	return Coord{Function: f, Instruction: WholeFunction}
}

// IsFunction reports whether c addresses a whole function.
func (c Coord) IsFunction() bool {
	return c.Function >= 0 && c.Instruction == WholeFunction
}

// Less orders coordinates by function, then instruction.
func (c Coord) Less(o Coord) bool {
	if c.Function != o.Function {
		return c.Function < o.Function
	}
	return c.Instruction < o.Instruction
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Function, c.Instruction)
}

// SortCoords sorts coordinates in (function, instruction) order.
func SortCoords(cs []Coord) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].Less(cs[j]) })
}

// PositionMap maps original program coordinates to coordinates in a derived
// program. Only loci that survived knockout have entries.
type PositionMap map[Coord]Coord

// Lookup returns the derived coordinate for orig.
func (m PositionMap) Lookup(orig Coord) (Coord, bool) {
	c, ok := m[orig]
	return c, ok
}

// Get returns the derived coordinate for orig, or Sentinel if orig was
// knocked out or never existed.
func (m PositionMap) Get(orig Coord) Coord {
	if c, ok := m[orig]; ok {
		return c
	}
	return Sentinel
}

// Len returns the number of surviving loci.
func (m PositionMap) Len() int {
	return len(m)
}

// Originals returns the mapped original coordinates in order.
func (m PositionMap) Originals() []Coord {
	out := make([]Coord, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	SortCoords(out)
	return out
}
