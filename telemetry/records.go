package telemetry

import (
	"github.com/google/uuid"

	"github.com/pthm-cable/deme/deme"
	"github.com/pthm-cable/deme/hardware"
	"github.com/pthm-cable/deme/landscape"
	"github.com/pthm-cable/deme/program"
)

// NewRunID returns a fresh identifier tagging every row of one run.
func NewRunID() string {
	return uuid.NewString()
}

// LandscapeRecord is one row of landscape.csv. The baseline row has
// function and instruction -1.
type LandscapeRecord struct {
	RunID       string  `csv:"run_id"`
	Program     string  `csv:"program"`
	Function    int     `csv:"function"`
	Instruction int     `csv:"instruction"`
	Op          string  `csv:"op"`
	Fitness     float64 `csv:"fitness"`
	Delta       float64 `csv:"delta"`
}

// LandscapeRecords flattens res into rows, baseline first, loci in
// (function, instruction) order. Coordinates refer to the derived program.
func LandscapeRecords(runID, name string, res landscape.Result, lib *hardware.InstLib) []LandscapeRecord {
	out := make([]LandscapeRecord, 0, res.Map.Len())
	if base, ok := res.Map.Lookup(program.Sentinel); ok {
		out = append(out, LandscapeRecord{
			RunID:       runID,
			Program:     name,
			Function:    program.Sentinel.Function,
			Instruction: program.Sentinel.Instruction,
			Op:          "baseline",
			Fitness:     base,
		})
	}
	for _, c := range res.Map.Loci() {
		d, _ := res.Map.Delta(c)
		op := ""
		if res.Derived.Valid(c) {
			op = lib.Format(res.Derived.At(c))
		}
		out = append(out, LandscapeRecord{
			RunID:       runID,
			Program:     name,
			Function:    c.Function,
			Instruction: c.Instruction,
			Op:          op,
			Fitness:     res.Map.Get(c),
			Delta:       d,
		})
	}
	return out
}

// PositionRecord is one row of positions.csv.
type PositionRecord struct {
	RunID              string `csv:"run_id"`
	Program            string `csv:"program"`
	Function           int    `csv:"function"`
	Instruction        int    `csv:"instruction"`
	DerivedFunction    int    `csv:"derived_function"`
	DerivedInstruction int    `csv:"derived_instruction"`
}

// PositionRecords flattens a position map in original coordinate order.
func PositionRecords(runID, name string, positions program.PositionMap) []PositionRecord {
	origs := positions.Originals()
	out := make([]PositionRecord, 0, len(origs))
	for _, o := range origs {
		d := positions.Get(o)
		out = append(out, PositionRecord{
			RunID:              runID,
			Program:            name,
			Function:           o.Function,
			Instruction:        o.Instruction,
			DerivedFunction:    d.Function,
			DerivedInstruction: d.Instruction,
		})
	}
	return out
}

// CellRecord is one row of deme.csv.
type CellRecord struct {
	RunID      string  `csv:"run_id"`
	Tick       uint64  `csv:"tick"`
	Index      int     `csv:"index"`
	X          int     `csv:"x"`
	Y          int     `csv:"y"`
	RoleID     float64 `csv:"role_id"`
	KnockedOut bool    `csv:"knocked_out"`
	Threads    int     `csv:"threads"`
	Queued     int     `csv:"queued"`
}

// CellRecords converts a deme snapshot into rows.
func CellRecords(runID string, tick uint64, cells []deme.CellState) []CellRecord {
	out := make([]CellRecord, len(cells))
	for i, c := range cells {
		out[i] = CellRecord{
			RunID:      runID,
			Tick:       tick,
			Index:      c.Index,
			X:          c.X,
			Y:          c.Y,
			RoleID:     c.RoleID,
			KnockedOut: c.KnockedOut,
			Threads:    c.Threads,
			Queued:     c.Queued,
		}
	}
	return out
}
