package session

import (
	"errors"
	"fmt"

	"github.com/pthm-cable/deme/config"
	"github.com/pthm-cable/deme/hardware"
	"github.com/pthm-cable/deme/program"
)

// ErrUnknownOp is returned when a catalog program names an opcode the
// instruction library does not define.
var ErrUnknownOp = errors.New("session: unknown instruction")

// Compile resolves a catalog program against lib.
func Compile(pc config.ProgramConfig, lib *hardware.InstLib) (program.Program, error) {
	b := program.NewBuilder()
	for f, fc := range pc.Functions {
		aff, err := parseAffinity(fc.Affinity)
		if err != nil {
			return nil, fmt.Errorf("program %q function %d: %w", pc.Name, f, err)
		}
		b.Function(aff)
		for i, ic := range fc.Instructions {
			id, ok := lib.ID(ic.Op)
			if !ok {
				return nil, fmt.Errorf("program %q (%d,%d): %w %q", pc.Name, f, i, ErrUnknownOp, ic.Op)
			}
			if len(ic.Args) > program.NumArgs {
				return nil, fmt.Errorf("program %q (%d,%d): %s takes at most %d arguments, got %d",
					pc.Name, f, i, ic.Op, program.NumArgs, len(ic.Args))
			}
			instAff, err := parseAffinity(ic.Affinity)
			if err != nil {
				return nil, fmt.Errorf("program %q (%d,%d): %w", pc.Name, f, i, err)
			}
			b.InstAff(id, instAff, ic.Args...)
		}
	}
	return b.Program(), nil
}

func parseAffinity(s string) (program.Affinity, error) {
	if s == "" {
		return program.Affinity{}, nil
	}
	return program.ParseAffinity(s)
}
