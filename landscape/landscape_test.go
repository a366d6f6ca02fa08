package landscape

import (
	"math"
	"testing"

	"github.com/pthm-cable/deme/program"
)

const nopID = 0

var nop = program.NewInstruction(nopID)

func sizedProgram(sizes ...int) program.Program {
	b := program.NewBuilder()
	for f, n := range sizes {
		var aff program.Affinity
		aff.Set(f, true)
		b.Function(aff)
		for i := 0; i < n; i++ {
			b.Inst(1+f*100+i, i, f)
		}
	}
	return b.Program()
}

// countNops scores a program by how many no-ops it holds.
func countNops(p program.Program) float64 {
	n := 0
	for _, fn := range p {
		for _, inst := range fn.Instructions {
			if inst.ID == nopID {
				n++
			}
		}
	}
	return float64(n)
}

func TestLandscapeCompleteness(t *testing.T) {
	base := sizedProgram(5, 6)
	before := base.Clone()

	calls := 0
	eval := func(p program.Program) float64 {
		calls++
		return countNops(p)
	}

	res := NewLandscaper(nop).Landscape(base, program.NewKnockoutSet(), eval)

	if res.Map.Len() != 12 {
		t.Fatalf("Len = %d, want 12", res.Map.Len())
	}
	if len(res.Map.Loci()) != 11 {
		t.Errorf("Loci = %d, want 11", len(res.Map.Loci()))
	}
	if calls != 12 {
		t.Errorf("eval calls = %d, want 12", calls)
	}
	if res.Map.Baseline() != 0 {
		t.Errorf("Baseline = %v, want 0", res.Map.Baseline())
	}
	// Each locus saw exactly one no-op, so no knockout leaked into the next.
	for _, c := range res.Map.Loci() {
		if v := res.Map.Get(c); v != 1 {
			t.Errorf("fitness at %v = %v, want 1", c, v)
		}
	}
	if !res.Derived.Equal(before) {
		t.Error("derived program changed by landscaping")
	}
	if !base.Equal(before) {
		t.Error("base program changed by landscaping")
	}
}

func TestLandscapeEmptyDerived(t *testing.T) {
	base := sizedProgram(2)
	ko := program.NewKnockoutSet()
	ko.ToggleFunction(0)

	res := NewLandscaper(nop).Landscape(base, ko, func(p program.Program) float64 {
		if !p.Empty() {
			t.Errorf("eval got non-empty program %v", p)
		}
		return 0
	})

	if res.Map.Len() != 1 {
		t.Fatalf("Len = %d, want 1", res.Map.Len())
	}
	if _, ok := res.Map.Lookup(program.Sentinel); !ok {
		t.Error("baseline entry missing")
	}
	if len(res.Map.Loci()) != 0 {
		t.Errorf("Loci = %v, want none", res.Map.Loci())
	}
}

func TestLandscapeUsesDerivedCoordinates(t *testing.T) {
	base := sizedProgram(3, 2, 4)
	ko := program.NewKnockoutSet()
	ko.ToggleFunction(1)
	ko.ToggleInstruction(0, 1)

	res := NewLandscaper(nop).Landscape(base, ko, countNops)

	// Derived sizes are [2, 4].
	if res.Map.Len() != 7 {
		t.Fatalf("Len = %d, want 7", res.Map.Len())
	}
	if got := res.Positions.Get(program.Coord{Function: 2, Instruction: 3}); got != (program.Coord{Function: 1, Instruction: 3}) {
		t.Errorf("position of (2,3) = %v, want (1,3)", got)
	}
	if got := res.Positions.Get(program.Coord{Function: 1, Instruction: 0}); got != program.Sentinel {
		t.Errorf("knocked-out function position = %v, want sentinel", got)
	}
	for _, c := range res.Map.Loci() {
		if c.Function > 1 {
			t.Errorf("locus %v outside derived program", c)
		}
	}
}

func TestLandscapeOnLocus(t *testing.T) {
	l := NewLandscaper(nop)
	var seen []program.Coord
	lastDone, lastTotal := 0, 0
	l.OnLocus = func(c program.Coord, _ float64, done, total int) {
		seen = append(seen, c)
		lastDone, lastTotal = done, total
	}
	l.Landscape(sizedProgram(2, 1), nil, countNops)

	want := []program.Coord{{0, 0}, {0, 1}, {1, 0}}
	if len(seen) != len(want) {
		t.Fatalf("OnLocus calls = %d, want %d", len(seen), len(want))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("locus %d = %v, want %v", i, seen[i], want[i])
		}
	}
	if lastDone != 3 || lastTotal != 3 {
		t.Errorf("progress = %d/%d, want 3/3", lastDone, lastTotal)
	}
}

func TestMapMisses(t *testing.T) {
	m := Map{}
	if m.Get(program.Coord{Function: 3, Instruction: 1}) != MissingFitness {
		t.Error("Get miss should return MissingFitness")
	}
	if m.Baseline() != MissingFitness {
		t.Error("Baseline miss should return MissingFitness")
	}
	if _, ok := m.Delta(program.Coord{}); ok {
		t.Error("Delta without baseline should report false")
	}

	m[program.Sentinel] = 2
	m[program.Coord{}] = 1.5
	if d, ok := m.Delta(program.Coord{}); !ok || d != -0.5 {
		t.Errorf("Delta = %v, %v, want -0.5, true", d, ok)
	}
	if _, ok := m.Delta(program.Sentinel); ok {
		t.Error("Delta of the baseline should report false")
	}
	m.Clear()
	if m.Len() != 0 {
		t.Errorf("Len after Clear = %d", m.Len())
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		m    Map
		want Summary
	}{
		{
			name: "no baseline",
			m:    Map{{0, 0}: 1},
			want: Summary{},
		},
		{
			name: "baseline only",
			m:    Map{program.Sentinel: 3},
			want: Summary{Baseline: 3},
		},
		{
			name: "single locus",
			m:    Map{program.Sentinel: 3, {0, 0}: 1},
			want: Summary{Loci: 1, Baseline: 3, MeanDelta: -2, MinDelta: -2, MaxDelta: -2, MedianDelta: -2, Deleterious: 1},
		},
		{
			name: "mixed",
			m: Map{
				program.Sentinel: 2,
				{0, 0}:           0,
				{0, 1}:           2,
				{0, 2}:           2.0005,
				{1, 0}:           4,
			},
			want: Summary{
				Loci: 4, Baseline: 2,
				MeanDelta: 0.000125, MinDelta: -2, MaxDelta: 2, MedianDelta: 0,
				Deleterious: 1, Neutral: 2, Beneficial: 1,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.m, 0.001)
			if got.Loci != tt.want.Loci || got.Baseline != tt.want.Baseline {
				t.Errorf("Loci/Baseline = %d/%v, want %d/%v", got.Loci, got.Baseline, tt.want.Loci, tt.want.Baseline)
			}
			if got.Deleterious != tt.want.Deleterious || got.Neutral != tt.want.Neutral || got.Beneficial != tt.want.Beneficial {
				t.Errorf("classes = %d/%d/%d, want %d/%d/%d",
					got.Deleterious, got.Neutral, got.Beneficial,
					tt.want.Deleterious, tt.want.Neutral, tt.want.Beneficial)
			}
			for _, f := range []struct {
				name      string
				got, want float64
			}{
				{"mean", got.MeanDelta, tt.want.MeanDelta},
				{"min", got.MinDelta, tt.want.MinDelta},
				{"max", got.MaxDelta, tt.want.MaxDelta},
				{"median", got.MedianDelta, tt.want.MedianDelta},
			} {
				if math.Abs(f.got-f.want) > 1e-9 {
					t.Errorf("%s = %v, want %v", f.name, f.got, f.want)
				}
			}
			if math.IsNaN(got.StdDelta) {
				t.Error("StdDelta is NaN")
			}
		})
	}
}
