package executor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tdixon97/legend-simflow/internal/ctxlog"
)

// RunOptions parameterizes task dispatch.
type RunOptions struct {
	// Workers bounds concurrent task execution. Values below 1 mean 1.
	Workers int
	// Force runs every task regardless of staleness.
	Force bool
}

// Run dispatches tasks tier by tier: within a tier tasks are independent
// and run concurrently, across tiers the plan order is a dependency order
// and is honored. The first failure cancels the remaining tasks of its
// wave and aborts the run.
func Run(ctx context.Context, tasks []*Task, opts RunOptions) error {
	logger := ctxlog.FromContext(ctx)

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	for _, wave := range waves(tasks) {
		group, gctx := errgroup.WithContext(ctx)
		group.SetLimit(workers)

		for _, t := range wave {
			t := t
			if !opts.Force && !t.Stale() {
				logger.Debug("task up to date", "task", t.ID)
				continue
			}
			group.Go(func() error {
				logger.Info("running task", "task", t.ID)
				if err := runTask(gctx, t); err != nil {
					return fmt.Errorf("task %s: %w", t.ID, err)
				}
				logger.Debug("task finished", "task", t.ID)
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// waves splits the ordered task list into consecutive groups of the same
// tier. The planner emits producers (ver) before consumers (stp), so a
// tier boundary is a synchronization point.
func waves(tasks []*Task) [][]*Task {
	var out [][]*Task
	for _, t := range tasks {
		if n := len(out); n > 0 && out[n-1][0].Tier == t.Tier {
			out[n-1] = append(out[n-1], t)
			continue
		}
		out = append(out, []*Task{t})
	}
	return out
}

func runTask(ctx context.Context, t *Task) error {
	dirs := append([]string(nil), t.Outputs...)
	if t.Log != "" {
		dirs = append(dirs, t.Log)
	}
	if t.Benchmark != "" {
		dirs = append(dirs, t.Benchmark)
	}
	for _, p := range dirs {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", t.Command)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		return err
	}
	if t.Benchmark != "" {
		record := fmt.Sprintf("wall_time_s\n%.3f\n", time.Since(start).Seconds())
		if err := os.WriteFile(t.Benchmark, []byte(record), 0o644); err != nil {
			return err
		}
	}
	return nil
}
