package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/pthm-cable/deme/config"
	"github.com/pthm-cable/deme/program"
	"github.com/pthm-cable/deme/session"
	"github.com/pthm-cable/deme/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	programName := flag.String("program", "column_roles", "Catalog program to run")
	ticks := flag.Int("ticks", 64, "Ticks to advance the interactive deme")
	seed := flag.Int64("seed", 0, "RNG seed (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	logStats := flag.Bool("log-stats", false, "Output role stats via slog at every snapshot")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	koFuncs := flag.String("knockout-functions", "", "Comma-separated function indices to knock out")
	koInsts := flag.String("knockout-instructions", "", "Comma-separated f:i instruction coordinates to knock out")
	koProcs := flag.String("knockout-processors", "", "Comma-separated processor indices to knock out")
	doLandscape := flag.Bool("landscape", false, "Landscape the derived program after the run")
	listPrograms := flag.Bool("list", false, "List catalog programs and exit")

	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -log-level %q\n", *logLevel)
		os.Exit(2)
	}
	// JSON to stdout for structured logging
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	if *seed != 0 {
		cfg.SetSeed(*seed)
	}

	s, err := session.New(cfg)
	if err != nil {
		slog.Error("failed to create session", "error", err)
		os.Exit(1)
	}

	if *listPrograms {
		for _, name := range s.Programs() {
			fmt.Println(name)
		}
		return
	}

	if err := run(s, runOptions{
		program:   *programName,
		ticks:     *ticks,
		outputDir: *outputDir,
		logStats:  *logStats,
		koFuncs:   *koFuncs,
		koInsts:   *koInsts,
		koProcs:   *koProcs,
		landscape: *doLandscape,
	}); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

type runOptions struct {
	program   string
	ticks     int
	outputDir string
	logStats  bool
	koFuncs   string
	koInsts   string
	koProcs   string
	landscape bool
}

func run(s *session.Session, opts runOptions) error {
	cfg := s.Config()
	if err := s.Select(opts.program); err != nil {
		return err
	}
	if err := applyKnockouts(s, opts); err != nil {
		return err
	}

	out, err := telemetry.NewOutputManager(opts.outputDir)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := out.WriteConfig(cfg); err != nil {
		return err
	}

	runID := telemetry.NewRunID()
	slog.Info("starting run",
		"run_id", runID,
		"program", opts.program,
		"seed", cfg.Deme.Seed,
		"width", cfg.Deme.Width,
		"height", cfg.Deme.Height,
		"ticks", opts.ticks,
		"knockouts", s.Knockouts().Len(),
		"processor_knockouts", len(s.Deme().Knockouts()),
	)

	if err := s.Load(); err != nil {
		return err
	}
	if err := out.WritePositions(runID, opts.program, s.Positions()); err != nil {
		return err
	}

	interval := cfg.Telemetry.SnapshotInterval
	perf := telemetry.NewPerfCollector(interval)
	d := s.Deme()
	for i := 0; i < opts.ticks; i++ {
		perf.StartTick()
		perf.StartPhase(telemetry.PhaseAdvance)
		if err := s.Advance(1); err != nil {
			return err
		}

		if interval > 0 && d.Tick()%uint64(interval) == 0 {
			perf.StartPhase(telemetry.PhaseSnapshot)
			cells := d.Snapshot()
			perf.StartPhase(telemetry.PhaseTelemetry)
			if opts.logStats {
				stats := telemetry.ComputeRoleStats(cells, cfg.Evaluation.MaxRoleID)
				stats.RunID, stats.Program, stats.Tick = runID, opts.program, d.Tick()
				stats.LogStats()
			}
			if err := out.WriteSnapshot(runID, d.Tick(), cells); err != nil {
				return err
			}
		}
		perf.EndTick()

		if interval > 0 && d.Tick()%uint64(interval) == 0 {
			if err := out.WritePerf(perf.Stats(), d.Tick()); err != nil {
				return err
			}
		}
	}

	final := telemetry.ComputeRoleStats(d.Snapshot(), cfg.Evaluation.MaxRoleID)
	final.RunID, final.Program, final.Tick = runID, opts.program, d.Tick()
	slog.Info("run complete", "roles", final, "perf", perf.Stats())

	if !opts.landscape {
		return nil
	}
	res, err := s.Landscape()
	if err != nil {
		return err
	}
	if err := out.WriteLandscape(runID, opts.program, res, s.InstLib()); err != nil {
		return err
	}
	slog.Info("landscape written", "program", opts.program, "summary", s.Summary(), "dir", out.Dir())
	return nil
}

func applyKnockouts(s *session.Session, opts runOptions) error {
	fns, err := parseInts(opts.koFuncs)
	if err != nil {
		return fmt.Errorf("parsing -knockout-functions: %w", err)
	}
	for _, f := range fns {
		s.ToggleFunctionKnockout(f)
	}

	insts, err := parseCoords(opts.koInsts)
	if err != nil {
		return fmt.Errorf("parsing -knockout-instructions: %w", err)
	}
	for _, c := range insts {
		s.ToggleInstructionKnockout(c.Function, c.Instruction)
	}

	procs, err := parseInts(opts.koProcs)
	if err != nil {
		return fmt.Errorf("parsing -knockout-processors: %w", err)
	}
	for _, id := range procs {
		if id < 0 || id >= s.Deme().Size() {
			return fmt.Errorf("processor %d outside deme of %d", id, s.Deme().Size())
		}
		s.ToggleProcessorKnockout(id)
	}
	return nil
}

func parseInts(list string) ([]int, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	var out []int
	for _, field := range strings.Split(list, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseCoords(list string) ([]program.Coord, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	var out []program.Coord
	for _, field := range strings.Split(list, ",") {
		f, i, ok := strings.Cut(strings.TrimSpace(field), ":")
		if !ok {
			return nil, fmt.Errorf("coordinate %q is not f:i", field)
		}
		fv, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		iv, err := strconv.Atoi(i)
		if err != nil {
			return nil, err
		}
		out = append(out, program.Coord{Function: fv, Instruction: iv})
	}
	return out, nil
}
