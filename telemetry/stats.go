package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"github.com/pthm-cable/deme/deme"
	"github.com/pthm-cable/deme/hardware"
)

// RoleStats aggregates the role state of a deme at one tick.
type RoleStats struct {
	RunID   string `csv:"run_id"`
	Program string `csv:"program"`
	Tick    uint64 `csv:"tick"`

	Processors    int `csv:"processors"`
	KnockedOut    int `csv:"knocked_out"`
	ValidRoles    int `csv:"valid_roles"`    // Processors holding a role in [1, max]
	DistinctRoles int `csv:"distinct_roles"` // Distinct valid role ids

	RoleMean float64 `csv:"role_mean"`
	RoleStd  float64 `csv:"role_std"`
	RoleP10  float64 `csv:"role_p10"`
	RoleP50  float64 `csv:"role_p50"`
	RoleP90  float64 `csv:"role_p90"`

	Threads int `csv:"threads"`
	Queued  int `csv:"queued"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeRoleStats summarizes cells. Role ids are integers in [1, maxRole]
// to count as valid; the distribution statistics cover every processor.
func ComputeRoleStats(cells []deme.CellState, maxRole int) RoleStats {
	s := RoleStats{Processors: len(cells)}
	if len(cells) == 0 {
		return s
	}

	roles := make([]float64, len(cells))
	distinct := make(map[int]bool)
	var sum float64
	for i, c := range cells {
		roles[i] = c.RoleID
		sum += c.RoleID
		if c.KnockedOut {
			s.KnockedOut++
		}
		s.Threads += c.Threads
		s.Queued += c.Queued
		if c.RoleID == math.Trunc(c.RoleID) {
			if id := hardware.Truncate(c.RoleID); id >= 1 && id <= maxRole {
				s.ValidRoles++
				distinct[id] = true
			}
		}
	}
	s.DistinctRoles = len(distinct)

	n := float64(len(roles))
	s.RoleMean = sum / n
	var sqDiffSum float64
	for _, v := range roles {
		d := v - s.RoleMean
		sqDiffSum += d * d
	}
	s.RoleStd = math.Sqrt(sqDiffSum / n)

	sort.Float64s(roles)
	s.RoleP10 = Percentile(roles, 0.10)
	s.RoleP50 = Percentile(roles, 0.50)
	s.RoleP90 = Percentile(roles, 0.90)
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s RoleStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("program", s.Program),
		slog.Uint64("tick", s.Tick),
		slog.Int("processors", s.Processors),
		slog.Int("knocked_out", s.KnockedOut),
		slog.Int("valid_roles", s.ValidRoles),
		slog.Int("distinct_roles", s.DistinctRoles),
		slog.Float64("role_mean", s.RoleMean),
		slog.Float64("role_std", s.RoleStd),
		slog.Float64("role_p10", s.RoleP10),
		slog.Float64("role_p50", s.RoleP50),
		slog.Float64("role_p90", s.RoleP90),
		slog.Int("threads", s.Threads),
		slog.Int("queued", s.Queued),
	)
}

// LogStats logs the role stats using slog.
func (s RoleStats) LogStats() {
	slog.Info("stats", "run_id", s.RunID, "roles", s)
}
