package deme

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/pthm-cable/deme/hardware"
	"github.com/pthm-cable/deme/program"
)

func newTestDeme(w, h int, seed int64) *Deme {
	return New(w, h, rand.New(rand.NewSource(seed)), NewInstLib(), NewEventLib(), hardware.DefaultConfig())
}

// roleFromX copies x_loc into role_id.
func roleFromX(lib *hardware.InstLib) program.Program {
	return program.NewBuilder().
		Function(program.Affinity{}).
		Inst(lib.MustID("GetXLoc"), 0).
		Inst(lib.MustID("SetRoleID"), 0).
		Program()
}

func TestConstructionTraits(t *testing.T) {
	d := newTestDeme(4, 3, 1)
	if d.Size() != 12 {
		t.Fatalf("Size = %d, want 12", d.Size())
	}
	for id := 0; id < d.Size(); id++ {
		cpu := d.Processor(id)
		if got, want := cpu.Trait(TraitXLoc), float64(id%4); got != want {
			t.Errorf("proc %d x_loc = %v, want %v", id, got, want)
		}
		if got, want := cpu.Trait(TraitYLoc), float64(id/4); got != want {
			t.Errorf("proc %d y_loc = %v, want %v", id, got, want)
		}
		if cpu.Trait(TraitRoleID) != 0 {
			t.Errorf("proc %d role_id = %v, want 0", id, cpu.Trait(TraitRoleID))
		}
	}
}

func TestNeighborsWrap(t *testing.T) {
	d := newTestDeme(5, 5, 1)
	got := d.Neighbors(d.Index(0, 0))
	want := [4]int{d.Index(4, 0), d.Index(1, 0), d.Index(0, 4), d.Index(0, 1)}
	if got != want {
		t.Errorf("Neighbors(0,0) = %v, want %v", got, want)
	}
	if want != [4]int{4, 1, 20, 5} {
		t.Errorf("Index mismatch: %v", want)
	}
}

func TestNeighborsSmallGridDuplicates(t *testing.T) {
	d := newTestDeme(2, 1, 1)
	got := d.Neighbors(0)
	want := [4]int{1, 1, 0, 0}
	if got != want {
		t.Errorf("Neighbors on 2x1 = %v, want %v", got, want)
	}
}

func TestIndexCoords(t *testing.T) {
	d := newTestDeme(5, 4, 1)
	tests := []struct {
		x, y int
		want int
	}{
		{0, 0, 0},
		{4, 3, 19},
		{-1, 0, 4},
		{5, 0, 0},
		{0, -1, 15},
		{2, 4, 2},
	}
	for _, tt := range tests {
		if got := d.Index(tt.x, tt.y); got != tt.want {
			t.Errorf("Index(%d,%d) = %d, want %d", tt.x, tt.y, got, tt.want)
		}
	}
	x, y := d.Coords(13)
	if x != 3 || y != 2 {
		t.Errorf("Coords(13) = (%d,%d), want (3,2)", x, y)
	}
}

func TestRandomNeighborDistribution(t *testing.T) {
	d := newTestDeme(5, 5, 42)
	center := d.Index(2, 2)

	allowed := make(map[int]bool)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			allowed[d.Index(2+dx, 2+dy)] = true
		}
	}

	const trials = 90000
	counts := make(map[int]int)
	for i := 0; i < trials; i++ {
		n := d.GetRandomNeighbor(center)
		if !allowed[n] {
			t.Fatalf("neighbour %d outside Moore neighbourhood", n)
		}
		counts[n]++
	}
	if len(counts) != 9 {
		t.Fatalf("saw %d distinct neighbours, want 9", len(counts))
	}
	for n, c := range counts {
		frac := float64(c) / trials
		if frac < 0.1 || frac > 0.123 {
			t.Errorf("neighbour %d frequency %.4f, want about 1/9", n, frac)
		}
	}
}

func TestRandomNeighborWrapsCorner(t *testing.T) {
	d := newTestDeme(5, 5, 7)
	allowed := map[int]bool{0: true, 1: true, 4: true, 5: true, 6: true, 9: true, 20: true, 21: true, 24: true}
	for i := 0; i < 2000; i++ {
		if n := d.GetRandomNeighbor(0); !allowed[n] {
			t.Fatalf("corner neighbour %d not in wrapped neighbourhood", n)
		}
	}
}

func TestRoleFromLocationScenario(t *testing.T) {
	d := newTestDeme(3, 3, 1)
	if err := d.LoadAgent(NewAgent(roleFromX(d.InstLib()))); err != nil {
		t.Fatalf("LoadAgent: %v", err)
	}
	if err := d.Advance(2); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	for id := 0; id < d.Size(); id++ {
		cpu := d.Processor(id)
		if cpu.Trait(TraitRoleID) != cpu.Trait(TraitXLoc) {
			t.Errorf("proc %d role_id = %v, want x_loc %v", id, cpu.Trait(TraitRoleID), cpu.Trait(TraitXLoc))
		}
	}
	if d.Tick() != 2 {
		t.Errorf("Tick = %d, want 2", d.Tick())
	}
}

func TestKnockoutScenario(t *testing.T) {
	d := newTestDeme(3, 3, 1)
	// Role is x_loc+1 so every running processor ends up non-zero.
	lib := d.InstLib()
	prog := program.NewBuilder().
		Function(program.Affinity{}).
		Inst(lib.MustID("GetXLoc"), 0).
		Inst(lib.MustID("Inc"), 0).
		Inst(lib.MustID("SetRoleID"), 0).
		Program()

	if !d.ToggleKnockout(4) {
		t.Fatal("ToggleKnockout(4) should report knocked out")
	}
	if err := d.LoadAgent(NewAgent(prog)); err != nil {
		t.Fatalf("LoadAgent: %v", err)
	}
	if !d.IsKnockedOut(4) {
		t.Fatal("LoadAgent must not clear knockouts")
	}
	if err := d.Advance(5); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	for id := 0; id < d.Size(); id++ {
		role := d.Processor(id).Trait(TraitRoleID)
		if id == 4 {
			if role != 0 {
				t.Errorf("knocked-out proc role_id = %v, want 0", role)
			}
			continue
		}
		if want := d.Processor(id).Trait(TraitXLoc) + 1; role != want {
			t.Errorf("proc %d role_id = %v, want %v", id, role, want)
		}
	}
}

func TestKnockoutToggles(t *testing.T) {
	d := newTestDeme(3, 3, 1)
	d.ToggleKnockout(2)
	d.ToggleKnockout(7)
	d.ToggleKnockout(5)
	if got := d.Knockouts(); len(got) != 3 || got[0] != 2 || got[1] != 5 || got[2] != 7 {
		t.Errorf("Knockouts = %v, want [2 5 7]", got)
	}
	if d.ToggleKnockout(5) {
		t.Error("second toggle should restore")
	}
	if d.IsKnockedOut(5) {
		t.Error("proc 5 still knocked out")
	}
	d.ClearKnockouts()
	if len(d.Knockouts()) != 0 {
		t.Errorf("Knockouts after clear = %v", d.Knockouts())
	}
}

func TestKnockoutOutOfRange(t *testing.T) {
	d := newTestDeme(3, 3, 1)
	for _, id := range []int{-1, 9, 100} {
		if d.ToggleKnockout(id) {
			t.Errorf("ToggleKnockout(%d) = true, want false", id)
		}
		if d.IsKnockedOut(id) {
			t.Errorf("IsKnockedOut(%d) = true", id)
		}
	}
	if len(d.Knockouts()) != 0 {
		t.Errorf("Knockouts = %v, want none", d.Knockouts())
	}
}

func TestAdvanceUnloaded(t *testing.T) {
	d := newTestDeme(2, 2, 1)
	if err := d.SingleAdvance(); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("SingleAdvance err = %v, want ErrNotLoaded", err)
	}
	if err := d.Advance(3); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Advance err = %v, want ErrNotLoaded", err)
	}
	if d.Tick() != 0 {
		t.Errorf("Tick = %d after failed advance", d.Tick())
	}
}

func TestLoadEmptyProgram(t *testing.T) {
	d := newTestDeme(2, 2, 1)
	if err := d.LoadAgent(NewAgent(nil)); !errors.Is(err, ErrEmptyProgram) {
		t.Errorf("LoadAgent(empty) err = %v, want ErrEmptyProgram", err)
	}
	if err := d.LoadAgent(nil); !errors.Is(err, ErrEmptyProgram) {
		t.Errorf("LoadAgent(nil) err = %v, want ErrEmptyProgram", err)
	}
	if d.Loaded() {
		t.Error("deme should stay unloaded")
	}
}

func TestResetClearsRoles(t *testing.T) {
	d := newTestDeme(3, 3, 1)
	if err := d.LoadAgent(NewAgent(roleFromX(d.InstLib()))); err != nil {
		t.Fatal(err)
	}
	if err := d.Advance(2); err != nil {
		t.Fatal(err)
	}
	d.ToggleKnockout(1)
	d.Reset()

	if d.Loaded() || d.Agent() != nil {
		t.Error("Reset should unload")
	}
	for id, role := range d.RoleIDs() {
		if role != 0 {
			t.Errorf("proc %d role_id = %v after reset", id, role)
		}
		if d.Processor(id).ThreadCount() != 0 {
			t.Errorf("proc %d still has threads", id)
		}
	}
	if !d.IsKnockedOut(1) {
		t.Error("Reset must keep knockouts")
	}
	if x := d.Processor(5).Trait(TraitXLoc); x != 2 {
		t.Errorf("x_loc after reset = %v, want 2", x)
	}
}

// msgProgram: fn0 sends or broadcasts with the affinity of fn1; fn1 sets role_id to 7.
func msgProgram(lib *hardware.InstLib, op string) program.Program {
	target := program.MustParseAffinity("1111")
	return program.NewBuilder().
		Function(program.Affinity{}).
		InstAff(lib.MustID(op), target).
		Inst(lib.MustID("Terminate")).
		Function(target).
		Inst(lib.MustID("SetMem"), 0, 7).
		Inst(lib.MustID("SetRoleID"), 0).
		Program()
}

func TestBroadcastReachesNeighbours(t *testing.T) {
	d := newTestDeme(5, 5, 1)
	// Only the centre runs; everyone else just receives.
	for id := 0; id < d.Size(); id++ {
		if id != 12 {
			d.ToggleKnockout(id)
		}
	}
	if err := d.LoadAgent(NewAgent(msgProgram(d.InstLib(), "BroadcastMsg"))); err != nil {
		t.Fatal(err)
	}
	if err := d.SingleAdvance(); err != nil {
		t.Fatal(err)
	}
	for _, n := range d.Neighbors(12) {
		if got := d.Processor(n).QueueLen(); got != 1 {
			t.Errorf("neighbour %d queue = %d, want 1", n, got)
		}
	}
	total := 0
	for id := 0; id < d.Size(); id++ {
		total += d.Processor(id).QueueLen()
	}
	if total != 4 {
		t.Errorf("total queued = %d, want 4", total)
	}

	// Restoring a neighbour lets it handle the message.
	d.ToggleKnockout(13)
	if err := d.Advance(3); err != nil {
		t.Fatal(err)
	}
	if role := d.Processor(13).Trait(TraitRoleID); role != 7 {
		t.Errorf("receiver role_id = %v, want 7", role)
	}
	if role := d.Processor(11).Trait(TraitRoleID); role != 0 {
		t.Errorf("knocked-out receiver role_id = %v, want 0", role)
	}
}

func TestSendDeliversOnce(t *testing.T) {
	d := newTestDeme(5, 5, 3)
	for id := 0; id < d.Size(); id++ {
		if id != 12 {
			d.ToggleKnockout(id)
		}
	}
	if err := d.LoadAgent(NewAgent(msgProgram(d.InstLib(), "SendMsg"))); err != nil {
		t.Fatal(err)
	}
	if err := d.SingleAdvance(); err != nil {
		t.Fatal(err)
	}
	total := 0
	for id := 0; id < d.Size(); id++ {
		q := d.Processor(id).QueueLen()
		if q > 0 {
			x, y := d.Coords(id)
			if x < 1 || x > 3 || y < 1 || y > 3 {
				t.Errorf("message delivered outside Moore neighbourhood: %d", id)
			}
		}
		total += q
	}
	if total != 1 {
		t.Errorf("total queued = %d, want 1", total)
	}
}

func TestSameTickDeliveryOrder(t *testing.T) {
	// On a 3x1 grid every processor broadcasts to its left and right
	// neighbour and twice to itself. Messages reaching a higher index are
	// consumed in the same tick; messages reaching a lower index wait.
	d := newTestDeme(3, 1, 1)
	if err := d.LoadAgent(NewAgent(msgProgram(d.InstLib(), "BroadcastMsg"))); err != nil {
		t.Fatal(err)
	}
	if err := d.SingleAdvance(); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		id, queued, threads int
	}{
		{0, 4, 1},
		{1, 3, 2},
		{2, 2, 3},
	}
	for _, tt := range tests {
		cpu := d.Processor(tt.id)
		if cpu.QueueLen() != tt.queued {
			t.Errorf("proc %d queue = %d, want %d", tt.id, cpu.QueueLen(), tt.queued)
		}
		if cpu.ThreadCount() != tt.threads {
			t.Errorf("proc %d threads = %d, want %d", tt.id, cpu.ThreadCount(), tt.threads)
		}
	}
}

func TestSnapshot(t *testing.T) {
	d := newTestDeme(3, 2, 1)
	d.ToggleKnockout(3)
	if err := d.LoadAgent(NewAgent(roleFromX(d.InstLib()))); err != nil {
		t.Fatal(err)
	}
	if err := d.Advance(2); err != nil {
		t.Fatal(err)
	}
	rows := d.Snapshot()
	if len(rows) != 6 {
		t.Fatalf("Snapshot rows = %d, want 6", len(rows))
	}
	for i, r := range rows {
		if r.Index != i || r.X != i%3 || r.Y != i/3 {
			t.Errorf("row %d = %+v", i, r)
		}
		if r.KnockedOut != (i == 3) {
			t.Errorf("row %d KnockedOut = %v", i, r.KnockedOut)
		}
	}
	if rows[2].RoleID != 2 || rows[5].RoleID != 2 {
		t.Errorf("role ids = %v, %v, want 2, 2", rows[2].RoleID, rows[5].RoleID)
	}
}
