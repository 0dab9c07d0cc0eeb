// Package executor turns resolved work lists into runnable (inputs,
// outputs, command) tasks and dispatches them with a bounded worker pool.
// It owns staleness detection and scheduling; everything about what a task
// does comes from the commands package.
package executor

import (
	"fmt"
	"os"
	"time"

	"github.com/tdixon97/legend-simflow/internal/aggregate"
	"github.com/tdixon97/legend-simflow/internal/commands"
	"github.com/tdixon97/legend-simflow/internal/config"
	"github.com/tdixon97/legend-simflow/internal/metad"
	"github.com/tdixon97/legend-simflow/internal/patterns"
	"github.com/tdixon97/legend-simflow/internal/simconfig"
	"github.com/tdixon97/legend-simflow/internal/tierdag"
)

// Task is one schedulable job: the executor re-runs it when any output is
// missing or older than the newest input.
type Task struct {
	ID      string
	Tier    string
	Simid   string
	Inputs  []string
	Outputs []string
	Command string
	// Log receives the combined stdout and stderr of the command.
	Log string
	// Benchmark, when set, receives a wall-time record after the task
	// completes.
	Benchmark string
}

// PlanOptions parameterizes plan construction.
type PlanOptions struct {
	// Threads per remage invocation.
	Threads int
	// MaxFiles truncates each simid to its first N jobs (0 = all).
	MaxFiles int
	// MacroFree builds macro-free command lines.
	MacroFree bool
	// Proctime labels the log directory of this invocation. Empty means
	// the current UTC time.
	Proctime string
	// Seeds overrides the seed source (tests).
	Seeds commands.SeedSource
}

// Plan expands "<tier>.<simid>" work-list entries into concrete tasks,
// ordered so that every vertices producer runs before its consumers.
// Entries default to the configured simlist. Only the remage tiers (ver,
// stp) are runnable in-process; downstream tiers are produced by external
// processors and are rejected here rather than silently skipped.
func Plan(cfg *config.Config, store *metad.Store, entries []string, opts PlanOptions) ([]*Task, error) {
	parsed, err := aggregate.ParseSimlist(cfg, entries)
	if err != nil {
		return nil, err
	}

	type item struct{ tier, simid string }
	var items []item
	seen := make(map[string]bool)

	add := func(tier, simid string) {
		id := tierdag.NodeID(tier, simid)
		if !seen[id] {
			seen[id] = true
			items = append(items, item{tier, simid})
		}
	}

	for _, it := range parsed {
		switch it.Tier {
		case "ver", "stp":
			add(it.Tier, it.Simid)
		default:
			return nil, &simconfig.NotImplementedError{
				Feature: fmt.Sprintf("running tier %q jobs in-process", it.Tier)}
		}
	}

	// Pull in the ver producers of requested stp simids, then order the
	// whole set through the tier graph.
	g := tierdag.New()
	vertices := make(map[string]string) // stp simid -> ver simid
	for _, it := range items {
		g.AddNode(it.tier, it.simid)
	}
	for _, it := range items {
		if it.tier != "stp" {
			continue
		}
		block, err := simconfig.Block(cfg, store, "stp", it.simid)
		if err != nil {
			return nil, err
		}
		if block.Vertices == "" {
			continue
		}
		vertices[it.simid] = block.Vertices
		add("ver", block.Vertices)
		g.AddNode("ver", block.Vertices)
		if err := g.AddEdge("ver", block.Vertices, "stp", it.simid); err != nil {
			return nil, err
		}
	}

	order, err := g.TopoOrder()
	if err != nil {
		return nil, simconfig.NewConfigError(
			simconfig.BlockPath(cfg.Experiment, "stp"), err)
	}

	byID := make(map[string]item, len(items))
	for _, it := range items {
		byID[tierdag.NodeID(it.tier, it.simid)] = it
	}

	proctime := opts.Proctime
	if proctime == "" {
		proctime = time.Now().UTC().Format("20060102T150405Z")
	}

	var tasks []*Task
	for _, id := range order {
		it, ok := byID[id]
		if !ok {
			continue
		}
		simidTasks, err := planSimid(cfg, store, it.tier, it.simid, vertices[it.simid], proctime, opts)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, simidTasks...)
	}
	return tasks, nil
}

func planSimid(cfg *config.Config, store *metad.Store, tier, simid, verSimid, proctime string, opts PlanOptions) ([]*Task, error) {
	njobs, err := aggregate.SimidNjobs(cfg, store, tier, simid)
	if err != nil {
		return nil, err
	}
	if opts.MaxFiles > 0 && opts.MaxFiles < njobs {
		njobs = opts.MaxFiles
	}

	inputs := []string{
		patterns.InputSimjobFilename(cfg, tier, simid),
		patterns.GeomFilename(cfg),
	}
	if verSimid != "" {
		verOutputs, err := aggregate.SimidOutputs(cfg, store, "ver", verSimid, 0)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, verOutputs...)
	}

	tasks := make([]*Task, 0, njobs)
	for i := 0; i < njobs; i++ {
		jobid := patterns.Jobid(i)
		output := patterns.OutputSimjobFilename(cfg, tier, simid, jobid)
		logfile := patterns.LogFilename(cfg, proctime, tier, simid, jobid)

		cmd, err := commands.RemageRun(cfg, store, simid, tier, commands.RunOptions{
			Threads:   opts.Threads,
			Output:    output,
			MacroFree: opts.MacroFree,
			Seeds:     opts.Seeds,
		})
		if err != nil {
			return nil, err
		}

		task := &Task{
			ID:      fmt.Sprintf("%s.%s.%s", tier, simid, jobid),
			Tier:    tier,
			Simid:   simid,
			Inputs:  inputs,
			Outputs: []string{output},
			Command: cmd + " > " + commands.ShellQuote(logfile) + " 2>&1",
			Log:     logfile,
		}
		if cfg.BenchmarkEnabled() {
			task.Benchmark = patterns.BenchmarkFilename(cfg, tier, simid, jobid)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Stale reports whether a task needs to run: an output is missing, or an
// existing input is newer than the oldest output. Missing inputs do not
// mark a task fresh; they will fail loudly at run time instead.
func (t *Task) Stale() bool {
	var oldestOutput int64
	for _, out := range t.Outputs {
		info, err := os.Stat(out)
		if err != nil {
			return true
		}
		if mt := info.ModTime().UnixNano(); oldestOutput == 0 || mt < oldestOutput {
			oldestOutput = mt
		}
	}
	for _, in := range t.Inputs {
		info, err := os.Stat(in)
		if err != nil {
			continue
		}
		if info.ModTime().UnixNano() > oldestOutput {
			return true
		}
	}
	return false
}
