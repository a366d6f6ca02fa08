package deme

import "github.com/pthm-cable/deme/program"

// Agent is the program material loaded into a deme. The counters are
// scratch space for fitness functions.
type Agent struct {
	Program       program.Program
	ValidUIDCount int
	ValidIDCount  int
}

// NewAgent wraps p.
func NewAgent(p program.Program) *Agent {
	return &Agent{Program: p}
}
