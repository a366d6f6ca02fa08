package main

import (
	"errors"
	"testing"

	"github.com/pthm-cable/deme/session"
)

func TestRunnerRun(t *testing.T) {
	r := &Runner{Ticks: 4}
	results := r.Run([]string{"column_roles", "test"}, []int64{1, 2})

	want := []struct {
		program string
		seed    int64
		entries int
	}{
		{"column_roles", 1, 4},
		{"column_roles", 2, 4},
		{"test", 1, 14},
		{"test", 2, 14},
	}
	if len(results) != len(want) {
		t.Fatalf("results = %d, want %d", len(results), len(want))
	}
	ids := make(map[string]bool)
	for i, w := range want {
		got := results[i]
		if got.Err != nil {
			t.Fatalf("job %d: %v", i, got.Err)
		}
		if got.Program != w.program || got.Seed != w.seed {
			t.Errorf("job %d = %s/%d, want %s/%d", i, got.Program, got.Seed, w.program, w.seed)
		}
		if got.Result.Map.Len() != w.entries || got.Evaluations != w.entries {
			t.Errorf("job %d: %d entries, %d evaluations, want %d", i, got.Result.Map.Len(), got.Evaluations, w.entries)
		}
		if ids[got.RunID] {
			t.Errorf("duplicate run id %s", got.RunID)
		}
		ids[got.RunID] = true
	}
}

func TestRunnerUnknownProgram(t *testing.T) {
	results := (&Runner{Ticks: 1}).Run([]string{"missing"}, []int64{1})
	if !errors.Is(results[0].Err, session.ErrUnknownProgram) {
		t.Errorf("err = %v, want ErrUnknownProgram", results[0].Err)
	}
}

func TestSplitNames(t *testing.T) {
	got := splitNames(" a, ,b ,")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("splitNames = %v, want [a b]", got)
	}
	if len(splitNames("")) != 0 {
		t.Error("empty list should yield no names")
	}
}

func TestFormatDuration(t *testing.T) {
	if got := formatDuration(3723e9); got != "1h02m03s" {
		t.Errorf("formatDuration = %q", got)
	}
	if got := formatDuration(65e9); got != "1m05s" {
		t.Errorf("formatDuration = %q", got)
	}
}
