package executor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdixon97/legend-simflow/internal/commands"
	"github.com/tdixon97/legend-simflow/internal/patterns"
	"github.com/tdixon97/legend-simflow/internal/simconfig"
	"github.com/tdixon97/legend-simflow/internal/testutil"
)

func planOpts() PlanOptions {
	return PlanOptions{Seeds: &commands.FixedSeeds{Values: []uint32{7}}}
}

func TestPlan(t *testing.T) {
	p := testutil.NewProduction(t)
	p.WriteDefaultMetadata(t)
	cfg, store := p.Load(t)

	t.Run("one task per job", func(t *testing.T) {
		tasks, err := Plan(cfg, store, []string{"stp.gamma-lines"}, planOpts())
		require.NoError(t, err)
		require.Len(t, tasks, 2)

		assert.Equal(t, "stp.gamma-lines.0000", tasks[0].ID)
		assert.Equal(t, "stp.gamma-lines.0001", tasks[1].ID)
		assert.Equal(t, []string{
			patterns.OutputSimjobFilename(cfg, "stp", "gamma-lines", "0000"),
		}, tasks[0].Outputs)
		assert.Contains(t, tasks[0].Inputs, patterns.InputSimjobFilename(cfg, "stp", "gamma-lines"))
		assert.Contains(t, tasks[0].Inputs, patterns.GeomFilename(cfg))
		assert.NotEmpty(t, tasks[0].Command)
	})

	t.Run("ver producers run before their consumers", func(t *testing.T) {
		tasks, err := Plan(cfg, store, []string{"stp.from-vertices"}, planOpts())
		require.NoError(t, err)
		// 2 ver.birds jobs pulled in automatically, then 2 stp jobs.
		require.Len(t, tasks, 4)
		assert.Equal(t, "ver", tasks[0].Tier)
		assert.Equal(t, "ver", tasks[1].Tier)
		assert.Equal(t, "stp", tasks[2].Tier)
		assert.Equal(t, "stp", tasks[3].Tier)

		// The consumer lists the producer outputs among its inputs.
		assert.Contains(t, tasks[2].Inputs,
			patterns.OutputSimjobFilename(cfg, "ver", "birds", "0000"))
	})

	t.Run("duplicate entries collapse", func(t *testing.T) {
		tasks, err := Plan(cfg, store, []string{"ver.birds", "ver.birds"}, planOpts())
		require.NoError(t, err)
		assert.Len(t, tasks, 2)
	})

	t.Run("max-files truncates each simid", func(t *testing.T) {
		opts := planOpts()
		opts.MaxFiles = 1
		tasks, err := Plan(cfg, store, []string{"stp.gamma-lines"}, opts)
		require.NoError(t, err)
		assert.Len(t, tasks, 1)
	})

	t.Run("command output is redirected to the job log", func(t *testing.T) {
		opts := planOpts()
		opts.Proctime = "20260801T120000Z"
		tasks, err := Plan(cfg, store, []string{"ver.birds"}, opts)
		require.NoError(t, err)

		want := patterns.LogFilename(cfg, "20260801T120000Z", "ver", "birds", "0000")
		assert.Equal(t, want, tasks[0].Log)
		assert.True(t, strings.HasSuffix(tasks[0].Command,
			"> "+commands.ShellQuote(want)+" 2>&1"))
		assert.Empty(t, tasks[0].Benchmark)
	})

	t.Run("downstream tiers are rejected", func(t *testing.T) {
		_, err := Plan(cfg, store, []string{"pdf.gamma-lines"}, planOpts())
		var nie *simconfig.NotImplementedError
		assert.ErrorAs(t, err, &nie)
	})

	t.Run("unknown tier", func(t *testing.T) {
		_, err := Plan(cfg, store, []string{"raw.gamma-lines"}, planOpts())
		var cerr *simconfig.ConfigError
		require.ErrorAs(t, err, &cerr)
		assert.Contains(t, err.Error(), "unknown tier 'raw'")
	})

	t.Run("malformed entry", func(t *testing.T) {
		_, err := Plan(cfg, store, []string{"gamma-lines"}, planOpts())
		assert.ErrorContains(t, err, "not in the format <tier>.<simid>")
	})
}

func TestPlanBenchmark(t *testing.T) {
	p := testutil.NewProduction(t, testutil.WithBenchmark(map[string]int{"ver": 100}))
	p.WriteDefaultMetadata(t)
	cfg, store := p.Load(t)

	tasks, err := Plan(cfg, store, []string{"ver.birds"}, planOpts())
	require.NoError(t, err)
	// Benchmark mode collapses every simid to a single job.
	require.Len(t, tasks, 1)
	assert.Equal(t, patterns.BenchmarkFilename(cfg, "ver", "birds", "0000"),
		tasks[0].Benchmark)
}

func touch(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestTaskStale(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.mac")
	output := filepath.Join(dir, "out", "out.lh5")
	task := &Task{Inputs: []string{input}, Outputs: []string{output}}

	now := time.Now()

	t.Run("missing output is stale", func(t *testing.T) {
		touch(t, input, now)
		assert.True(t, task.Stale())
	})

	t.Run("fresh output is not stale", func(t *testing.T) {
		touch(t, output, now.Add(time.Hour))
		assert.False(t, task.Stale())
	})

	t.Run("newer input makes it stale again", func(t *testing.T) {
		touch(t, input, now.Add(2*time.Hour))
		assert.True(t, task.Stale())
	})

	t.Run("missing input does not mark it fresh", func(t *testing.T) {
		require.NoError(t, os.Remove(input))
		assert.False(t, task.Stale())
	})
}

func TestWaves(t *testing.T) {
	tasks := []*Task{
		{ID: "ver.a.0000", Tier: "ver"},
		{ID: "ver.b.0000", Tier: "ver"},
		{ID: "stp.c.0000", Tier: "stp"},
		{ID: "ver.d.0000", Tier: "ver"},
	}

	got := waves(tasks)
	require.Len(t, got, 3)
	assert.Len(t, got[0], 2)
	assert.Len(t, got[1], 1)
	assert.Len(t, got[2], 1)
}
