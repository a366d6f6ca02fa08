// Package telemetry writes run output (landscapes, position maps, deme
// snapshots and tick timing) as CSV and summarizes role state for logging.
package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/deme/config"
	"github.com/pthm-cable/deme/deme"
	"github.com/pthm-cable/deme/hardware"
	"github.com/pthm-cable/deme/landscape"
	"github.com/pthm-cable/deme/program"
)

// csvFile appends gocsv records to one file, writing the header once.
type csvFile struct {
	name          string
	f             *os.File
	headerWritten bool
}

func (c *csvFile) write(records any) error {
	if !c.headerWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, c.f); err != nil {
			return fmt.Errorf("writing %s: %w", c.name, err)
		}
		c.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, c.f); err != nil {
		return fmt.Errorf("writing %s: %w", c.name, err)
	}
	return nil
}

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir       string
	landscape *csvFile
	positions *csvFile
	cells     *csvFile
	perf      *csvFile
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	targets := []struct {
		dst  **csvFile
		name string
	}{
		{&om.landscape, "landscape.csv"},
		{&om.positions, "positions.csv"},
		{&om.cells, "deme.csv"},
		{&om.perf, "perf.csv"},
	}
	for _, t := range targets {
		f, err := os.Create(filepath.Join(dir, t.name))
		if err != nil {
			om.Close()
			return nil, fmt.Errorf("creating %s: %w", t.name, err)
		}
		*t.dst = &csvFile{name: t.name, f: f}
	}
	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteLandscape appends the landscape of one program to landscape.csv.
func (om *OutputManager) WriteLandscape(runID, name string, res landscape.Result, lib *hardware.InstLib) error {
	if om == nil {
		return nil
	}
	return om.landscape.write(LandscapeRecords(runID, name, res, lib))
}

// WritePositions appends a position map to positions.csv.
func (om *OutputManager) WritePositions(runID, name string, positions program.PositionMap) error {
	if om == nil || positions.Len() == 0 {
		return nil
	}
	return om.positions.write(PositionRecords(runID, name, positions))
}

// WriteSnapshot appends one row per processor to deme.csv.
func (om *OutputManager) WriteSnapshot(runID string, tick uint64, cells []deme.CellState) error {
	if om == nil || len(cells) == 0 {
		return nil
	}
	return om.cells.write(CellRecords(runID, tick, cells))
}

// WritePerf appends a performance record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd uint64) error {
	if om == nil {
		return nil
	}
	return om.perf.write([]PerfStatsCSV{stats.ToCSV(windowEnd)})
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, c := range []*csvFile{om.landscape, om.positions, om.cells, om.perf} {
		if c == nil {
			continue
		}
		if err := c.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
