package deme

import (
	"github.com/pthm-cable/deme/hardware"
	"github.com/pthm-cable/deme/program"
)

// Trait ids held by every deme processor.
const (
	TraitRoleID = iota
	TraitXLoc
	TraitYLoc
)

// RegisterInstructions adds the role and location instructions to lib.
// Each takes one local register argument.
func RegisterInstructions(lib *hardware.InstLib) {
	lib.Add("GetRoleID", instGetRoleID, 1, "Local[A] = role_id")
	lib.Add("SetRoleID", instSetRoleID, 1, "role_id = Local[A]")
	lib.Add("GetXLoc", instGetXLoc, 1, "Local[A] = x_loc")
	lib.Add("GetYLoc", instGetYLoc, 1, "Local[A] = y_loc")
}

// NewInstLib returns the default hardware library plus the deme instructions.
func NewInstLib() *hardware.InstLib {
	lib := hardware.DefaultInstLib()
	RegisterInstructions(lib)
	return lib
}

// NewEventLib returns the event library deme processors understand.
func NewEventLib() *hardware.EventLib {
	return hardware.DefaultEventLib()
}

func instGetRoleID(p *hardware.Processor, inst program.Instruction) {
	p.Local()[inst.Args[0]] = p.Trait(TraitRoleID)
}

func instSetRoleID(p *hardware.Processor, inst program.Instruction) {
	p.SetTrait(TraitRoleID, p.Local()[inst.Args[0]])
}

func instGetXLoc(p *hardware.Processor, inst program.Instruction) {
	p.Local()[inst.Args[0]] = p.Trait(TraitXLoc)
}

func instGetYLoc(p *hardware.Processor, inst program.Instruction) {
	p.Local()[inst.Args[0]] = p.Trait(TraitYLoc)
}
