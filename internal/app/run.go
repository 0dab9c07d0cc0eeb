package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/ohler55/ojg/oj"

	"github.com/tdixon97/legend-simflow/internal/aggregate"
	"github.com/tdixon97/legend-simflow/internal/commands"
	"github.com/tdixon97/legend-simflow/internal/ctxlog"
	"github.com/tdixon97/legend-simflow/internal/executor"
	"github.com/tdixon97/legend-simflow/internal/fsutil"
	"github.com/tdixon97/legend-simflow/internal/patterns"
	"github.com/tdixon97/legend-simflow/internal/simconfig"
)

// Run dispatches the requested command.
func (a *App) Run(ctx context.Context, appCfg *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	switch appCfg.Command {
	case "simids":
		return a.runSimids(appCfg)
	case "outputs":
		return a.runOutputs(appCfg)
	case "macro":
		return a.runMacro(appCfg)
	case "command":
		return a.runCommand(appCfg)
	case "run":
		return a.runExecute(ctx, appCfg)
	default:
		return fmt.Errorf("unknown command %q", appCfg.Command)
	}
}

func (a *App) printList(appCfg *Config, items []string) error {
	if appCfg.JSON {
		fmt.Fprintln(a.outW, oj.JSON(items))
		return nil
	}
	for _, item := range items {
		fmt.Fprintln(a.outW, item)
	}
	return nil
}

func (a *App) runSimids(appCfg *Config) error {
	simids, err := aggregate.AllSimids(a.cfg, a.store, appCfg.Tier)
	if err != nil {
		return err
	}
	return a.printList(appCfg, simids)
}

func (a *App) runOutputs(appCfg *Config) error {
	outputs, err := aggregate.ProcessSimlist(a.cfg, a.store, appCfg.Simlist)
	if err != nil {
		return err
	}
	return a.printList(appCfg, outputs)
}

func (a *App) runMacro(appCfg *Config) error {
	items, err := aggregate.ParseSimlist(a.cfg, appCfg.Simlist)
	if err != nil {
		return err
	}

	var paths []string
	for _, it := range items {
		if it.Tier != "ver" && it.Tier != "stp" {
			return simconfig.Errorf("simflow-config.simlist",
				"tier '%s' has no macros to render", it.Tier)
		}
		_, path, err := commands.MakeRemageMacro(a.cfg, a.store, it.Simid, it.Tier)
		if err != nil {
			return err
		}
		paths = append(paths, path)
	}
	return a.printList(appCfg, paths)
}

func (a *App) runCommand(appCfg *Config) error {
	items, err := aggregate.ParseSimlist(a.cfg, appCfg.Simlist)
	if err != nil {
		return err
	}
	if len(items) != 1 {
		return fmt.Errorf("the 'command' command takes exactly one <tier>.<simid> entry")
	}
	it := items[0]

	cmd, err := commands.RemageRun(a.cfg, a.store, it.Simid, it.Tier, commands.RunOptions{
		Threads:   appCfg.Threads,
		Output:    patterns.OutputSimjobFilename(a.cfg, it.Tier, it.Simid, appCfg.Jobid),
		MacroFree: appCfg.MacroFree,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.outW, cmd)
	return nil
}

func (a *App) runExecute(ctx context.Context, appCfg *Config) error {
	tasks, err := executor.Plan(a.cfg, a.store, appCfg.Simlist, executor.PlanOptions{
		Threads:   appCfg.Threads,
		MaxFiles:  appCfg.MaxFiles,
		MacroFree: appCfg.MacroFree,
	})
	if err != nil {
		return err
	}

	if appCfg.DryRun {
		for _, t := range tasks {
			fresh := ""
			if !appCfg.Force && !t.Stale() {
				fresh = " (up to date)"
			}
			fmt.Fprintf(a.outW, "%s%s\n  %s\n", t.ID, fresh, t.Command)
		}
		return nil
	}

	if err := executor.Run(ctx, tasks, executor.RunOptions{
		Workers: appCfg.Workers,
		Force:   appCfg.Force,
	}); err != nil {
		return err
	}

	if a.cfg.BenchmarkEnabled() {
		records, err := fsutil.FindFilesByExtension(a.cfg.Paths.Benchmarks, ".tsv")
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("collecting benchmark records: %w", err)
		}
		ctxlog.FromContext(ctx).Info("benchmark records collected",
			"dir", a.cfg.Paths.Benchmarks, "count", len(records))
	}
	return nil
}
