// Package main landscapes catalog programs over several seeds in parallel
// and writes the combined results as CSV.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pthm-cable/deme/config"
	"github.com/pthm-cable/deme/telemetry"
)

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	programs := flag.String("programs", "", "Comma-separated catalog programs (empty = all)")
	seeds := flag.Int("seeds", 3, "Number of seeds per program")
	ticks := flag.Int("ticks", 0, "Ticks per evaluation (0 = use config)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if *outputDir == "" {
		slog.Error("-output is required")
		os.Exit(2)
	}

	base, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	names := splitNames(*programs)
	if len(names) == 0 {
		for _, p := range base.Programs {
			names = append(names, p.Name)
		}
	}
	for _, name := range names {
		if _, ok := base.Program(name); !ok {
			slog.Error("unknown program", "name", name)
			os.Exit(1)
		}
	}

	// Generate seeds for evaluation
	evalSeeds := make([]int64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = base.Deme.Seed + int64(i*1000+42)
	}

	runner := &Runner{
		ConfigPath: *configPath,
		Ticks:      *ticks,
	}

	fmt.Printf("Landscaping %d programs x %d seeds (%s jobs)\n",
		len(names), len(evalSeeds), humanize.Comma(int64(len(names)*len(evalSeeds))))

	start := time.Now()
	results := runner.Run(names, evalSeeds)
	elapsed := time.Since(start)

	out, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output", "error", err)
		os.Exit(1)
	}
	defer out.Close()
	if err := out.WriteConfig(base); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	var evaluations int
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			slog.Error("job failed", "program", r.Program, "seed", r.Seed, "error", r.Err)
			failed++
			continue
		}
		evaluations += r.Evaluations
		if err := out.WriteLandscape(r.RunID, r.Program, r.Result, r.Lib); err != nil {
			slog.Error("failed to write landscape", "error", err)
		}
		if err := out.WritePositions(r.RunID, r.Program, r.Result.Positions); err != nil {
			slog.Error("failed to write positions", "error", err)
		}
		slog.Info("landscape",
			"run_id", r.RunID,
			"program", r.Program,
			"seed", r.Seed,
			"summary", r.Summary,
		)
	}

	fmt.Printf("\nLandscaping complete: %s evaluations in %s (%s/s)\n",
		humanize.Comma(int64(evaluations)),
		formatDuration(elapsed),
		humanize.FormatFloat("#,###.#", float64(evaluations)/elapsed.Seconds()),
	)
	fmt.Printf("Results saved to: %s\n", out.Dir())
	if failed > 0 {
		os.Exit(1)
	}
}

func splitNames(list string) []string {
	var out []string
	for _, name := range strings.Split(list, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}
