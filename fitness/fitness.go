// Package fitness reduces the trait state of a deme to a scalar score.
package fitness

import (
	"math"

	"github.com/pthm-cable/deme/deme"
	"github.com/pthm-cable/deme/hardware"
)

// Func scores a deme after its agent has run. It may fill the agent's
// counters for later inspection.
type Func func(d *deme.Deme, agent *deme.Agent) float64

// Params configures the built-in fitness functions.
type Params struct {
	MaxRoleID int // Largest valid role id; valid ids are integers in [1, MaxRoleID]
}

func validRole(v float64, maxRole int) (int, bool) {
	if math.IsNaN(v) || v != math.Trunc(v) {
		return 0, false
	}
	id := hardware.Truncate(v)
	return id, id >= 1 && id <= maxRole
}

// RoleDiversity rewards demes whose processors hold many distinct valid
// roles: the score is the number of distinct valid ids plus the fraction of
// processors holding any valid id.
func RoleDiversity(p Params) Func {
	return func(d *deme.Deme, agent *deme.Agent) float64 {
		seen := make(map[int]bool)
		valid := 0
		for _, role := range d.RoleIDs() {
			id, ok := validRole(role, p.MaxRoleID)
			if !ok {
				continue
			}
			valid++
			seen[id] = true
		}
		if agent != nil {
			agent.ValidIDCount = valid
			agent.ValidUIDCount = len(seen)
		}
		return float64(len(seen)) + float64(valid)/float64(d.Size())
	}
}

// RoleCoverage is the fraction of processors holding a valid role id.
func RoleCoverage(p Params) Func {
	return func(d *deme.Deme, agent *deme.Agent) float64 {
		valid := 0
		for _, role := range d.RoleIDs() {
			if _, ok := validRole(role, p.MaxRoleID); ok {
				valid++
			}
		}
		if agent != nil {
			agent.ValidIDCount = valid
		}
		return float64(valid) / float64(d.Size())
	}
}

// RoleLocation is the fraction of processors whose role id equals their
// column plus one.
func RoleLocation(Params) Func {
	return func(d *deme.Deme, agent *deme.Agent) float64 {
		hits := 0
		for i, role := range d.RoleIDs() {
			x, _ := d.Coords(i)
			if role == float64(x+1) {
				hits++
			}
		}
		if agent != nil {
			agent.ValidIDCount = hits
		}
		return float64(hits) / float64(d.Size())
	}
}
