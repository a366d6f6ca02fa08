package landscape

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/deme/program"
)

// Summary describes the distribution of per-locus fitness deltas.
type Summary struct {
	Loci        int
	Baseline    float64
	MeanDelta   float64
	StdDelta    float64
	MinDelta    float64
	MaxDelta    float64
	MedianDelta float64
	Deleterious int // delta < -epsilon
	Neutral     int // |delta| <= epsilon
	Beneficial  int // delta > epsilon
}

// Summarize reduces m to summary statistics. Deltas within epsilon of zero
// count as neutral. A map without a baseline yields the zero Summary.
func Summarize(m Map, epsilon float64) Summary {
	var s Summary
	base, ok := m.Lookup(program.Sentinel)
	if !ok {
		return s
	}
	s.Baseline = base

	loci := m.Loci()
	deltas := make([]float64, 0, len(loci))
	for _, c := range loci {
		d, _ := m.Delta(c)
		deltas = append(deltas, d)
		switch {
		case d < -epsilon:
			s.Deleterious++
		case d > epsilon:
			s.Beneficial++
		default:
			s.Neutral++
		}
	}
	s.Loci = len(deltas)
	if s.Loci == 0 {
		return s
	}

	s.MeanDelta, s.StdDelta = stat.MeanStdDev(deltas, nil)
	if math.IsNaN(s.StdDelta) {
		s.StdDelta = 0
	}
	s.MinDelta = floats.Min(deltas)
	s.MaxDelta = floats.Max(deltas)
	sort.Float64s(deltas)
	s.MedianDelta = stat.Quantile(0.5, stat.Empirical, deltas, nil)
	return s
}

// LogValue implements slog.LogValuer.
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("loci", s.Loci),
		slog.Float64("baseline", s.Baseline),
		slog.Float64("mean_delta", s.MeanDelta),
		slog.Float64("std_delta", s.StdDelta),
		slog.Float64("min_delta", s.MinDelta),
		slog.Float64("max_delta", s.MaxDelta),
		slog.Float64("median_delta", s.MedianDelta),
		slog.Int("deleterious", s.Deleterious),
		slog.Int("neutral", s.Neutral),
		slog.Int("beneficial", s.Beneficial),
	)
}
