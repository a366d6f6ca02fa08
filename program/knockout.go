package program

import "sort"

// KnockoutSet holds whole-function and single-instruction knockouts.
// Membership is the only state: toggling flips presence.
type KnockoutSet struct {
	functions    map[int]struct{}
	instructions map[Coord]struct{}
}

// NewKnockoutSet creates an empty knockout set.
func NewKnockoutSet() *KnockoutSet {
	return &KnockoutSet{
		functions:    make(map[int]struct{}),
		instructions: make(map[Coord]struct{}),
	}
}

// ToggleFunction flips the knockout state of function f and returns the new state.
func (k *KnockoutSet) ToggleFunction(f int) bool {
	if _, ok := k.functions[f]; ok {
		delete(k.functions, f)
		return false
	}
	k.functions[f] = struct{}{}
	return true
}

// ToggleInstruction flips the knockout state of instruction (f, i) and
// returns the new state.
func (k *KnockoutSet) ToggleInstruction(f, i int) bool {
	c := Coord{Function: f, Instruction: i}
	if _, ok := k.instructions[c]; ok {
		delete(k.instructions, c)
		return false
	}
	k.instructions[c] = struct{}{}
	return true
}

// HasFunction reports whether function f is knocked out.
func (k *KnockoutSet) HasFunction(f int) bool {
	if k == nil {
		return false
	}
	_, ok := k.functions[f]
	return ok
}

// HasInstruction reports whether instruction (f, i) is knocked out.
func (k *KnockoutSet) HasInstruction(f, i int) bool {
	if k == nil {
		return false
	}
	_, ok := k.instructions[Coord{Function: f, Instruction: i}]
	return ok
}

// Functions returns the knocked-out function indices in ascending order.
func (k *KnockoutSet) Functions() []int {
	out := make([]int, 0, len(k.functions))
	for f := range k.functions {
		out = append(out, f)
	}
	sort.Ints(out)
	return out
}

// Instructions returns the knocked-out instruction coordinates in order.
func (k *KnockoutSet) Instructions() []Coord {
	out := make([]Coord, 0, len(k.instructions))
	for c := range k.instructions {
		out = append(out, c)
	}
	SortCoords(out)
	return out
}

// Len returns the total number of knockouts.
func (k *KnockoutSet) Len() int {
	if k == nil {
		return 0
	}
	return len(k.functions) + len(k.instructions)
}

// Clear removes all knockouts.
func (k *KnockoutSet) Clear() {
	clear(k.functions)
	clear(k.instructions)
}

// Clone returns an independent copy of the set.
func (k *KnockoutSet) Clone() *KnockoutSet {
	out := NewKnockoutSet()
	if k == nil {
		return out
	}
	for f := range k.functions {
		out.functions[f] = struct{}{}
	}
	for c := range k.instructions {
		out.instructions[c] = struct{}{}
	}
	return out
}

// Equal reports whether two sets have the same members.
func (k *KnockoutSet) Equal(o *KnockoutSet) bool {
	if k.Len() != o.Len() {
		return false
	}
	for f := range k.functions {
		if !o.HasFunction(f) {
			return false
		}
	}
	for c := range k.instructions {
		if !o.HasInstruction(c.Function, c.Instruction) {
			return false
		}
	}
	return true
}

// Build derives a filtered program from base by dropping knocked-out
// functions and instructions. Functions emptied by instruction knockouts are
// dropped and the remaining indices compact; functions that were already
// empty in base are kept. The position map records where
// every surviving instruction of base ended up. A nil knockouts behaves as
// an empty set.
func Build(base Program, knockouts *KnockoutSet) (Program, PositionMap) {
	derived := make(Program, 0, len(base))
	positions := make(PositionMap, base.Size())

	for fID, fn := range base {
		if knockouts.HasFunction(fID) {
			continue
		}
		newFn := Function{Affinity: fn.Affinity}
		newID := len(derived)
		survivors := make([]Coord, 0, len(fn.Instructions))
		for iID, inst := range fn.Instructions {
			if knockouts.HasInstruction(fID, iID) {
				continue
			}
			survivors = append(survivors, Coord{Function: fID, Instruction: iID})
			newFn.Instructions = append(newFn.Instructions, inst)
		}
		if len(newFn.Instructions) == 0 && len(fn.Instructions) > 0 {
			continue
		}
		for pos, orig := range survivors {
			positions[orig] = Coord{Function: newID, Instruction: pos}
		}
		derived = append(derived, newFn)
	}

	return derived, positions
}
