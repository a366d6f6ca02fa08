package main

import (
	"fmt"
	"sync"

	"github.com/pthm-cable/deme/config"
	"github.com/pthm-cable/deme/hardware"
	"github.com/pthm-cable/deme/landscape"
	"github.com/pthm-cable/deme/session"
	"github.com/pthm-cable/deme/telemetry"
)

// Runner landscapes programs in independent sessions, one goroutine per
// (program, seed) job.
type Runner struct {
	ConfigPath string
	Ticks      int // 0 = config value
}

// JobResult holds the outcome of one job.
type JobResult struct {
	RunID       string
	Program     string
	Seed        int64
	Result      landscape.Result
	Summary     landscape.Summary
	Evaluations int
	Lib         *hardware.InstLib
	Err         error
}

// Run landscapes every program under every seed. Results are ordered by
// program, then seed.
func (r *Runner) Run(programs []string, seeds []int64) []JobResult {
	results := make([]JobResult, len(programs)*len(seeds))
	var wg sync.WaitGroup

	for pi, name := range programs {
		for si, seed := range seeds {
			wg.Add(1)
			go func(idx int, name string, seed int64) {
				defer wg.Done()
				results[idx] = r.runJob(name, seed)
			}(pi*len(seeds)+si, name, seed)
		}
	}
	wg.Wait()
	return results
}

// runJob owns its config copy and session, so no state is shared between
// goroutines.
func (r *Runner) runJob(name string, seed int64) JobResult {
	res := JobResult{RunID: telemetry.NewRunID(), Program: name, Seed: seed}

	cfg, err := config.Load(r.ConfigPath)
	if err != nil {
		res.Err = err
		return res
	}
	cfg.SetSeed(seed)
	if cfg.Evaluation.Seed != 0 {
		// An explicit evaluation seed would make every job identical.
		cfg.Derived.EvalSeed = seed
	}
	if r.Ticks > 0 {
		cfg.Evaluation.Ticks = r.Ticks
	}

	s, err := session.New(cfg)
	if err != nil {
		res.Err = err
		return res
	}
	res.Result, err = s.LandscapeProgram(name)
	if err != nil {
		res.Err = fmt.Errorf("landscaping %q: %w", name, err)
		return res
	}
	res.Summary = s.Summary()
	res.Evaluations = s.Evaluator().Evaluations()
	res.Lib = s.InstLib()
	return res
}
