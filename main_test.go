package main

import (
	"testing"

	"github.com/pthm-cable/deme/program"
)

func TestParseInts(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"", nil, false},
		{"  ", nil, false},
		{"4", []int{4}, false},
		{"1, 2,3", []int{1, 2, 3}, false},
		{"1,x", nil, true},
	}
	for _, tt := range tests {
		got, err := parseInts(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseInts(%q) err = %v", tt.in, err)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("parseInts(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseInts(%q) = %v, want %v", tt.in, got, tt.want)
			}
		}
	}
}

func TestParseCoords(t *testing.T) {
	got, err := parseCoords("0:1, 2:3")
	if err != nil {
		t.Fatal(err)
	}
	want := []program.Coord{{Function: 0, Instruction: 1}, {Function: 2, Instruction: 3}}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("parseCoords = %v, want %v", got, want)
	}
	for _, bad := range []string{"1", "a:1", "1:b"} {
		if _, err := parseCoords(bad); err == nil {
			t.Errorf("parseCoords(%q) should fail", bad)
		}
	}
}
