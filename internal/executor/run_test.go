package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shellTask builds a task whose command writes its own output file, which
// is all the executor needs to observe completion.
func shellTask(dir, id, tier, name string) *Task {
	out := filepath.Join(dir, name)
	return &Task{
		ID:      id,
		Tier:    tier,
		Outputs: []string{out},
		Command: "echo done > " + out,
	}
}

func TestRun(t *testing.T) {
	t.Run("runs every stale task", func(t *testing.T) {
		dir := t.TempDir()
		tasks := []*Task{
			shellTask(dir, "ver.a.0000", "ver", "a.out"),
			shellTask(dir, "ver.b.0000", "ver", "b.out"),
			shellTask(dir, "stp.c.0000", "stp", "c.out"),
		}

		require.NoError(t, Run(context.Background(), tasks, RunOptions{Workers: 2}))
		for _, task := range tasks {
			assert.FileExists(t, task.Outputs[0])
		}
	})

	t.Run("skips fresh tasks unless forced", func(t *testing.T) {
		dir := t.TempDir()
		task := shellTask(dir, "ver.a.0000", "ver", "a.out")
		task.Command = "echo ran >> " + filepath.Join(dir, "marker")

		// Pre-create the output so the task is up to date.
		require.NoError(t, os.WriteFile(task.Outputs[0], []byte("x"), 0o644))

		require.NoError(t, Run(context.Background(), []*Task{task}, RunOptions{}))
		assert.NoFileExists(t, filepath.Join(dir, "marker"))

		require.NoError(t, Run(context.Background(), []*Task{task}, RunOptions{Force: true}))
		assert.FileExists(t, filepath.Join(dir, "marker"))
	})

	t.Run("failing task aborts the run", func(t *testing.T) {
		dir := t.TempDir()
		bad := shellTask(dir, "ver.a.0000", "ver", "a.out")
		bad.Command = "exit 3"

		err := Run(context.Background(), []*Task{bad}, RunOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "task ver.a.0000")
	})

	t.Run("creates the log directory before dispatch", func(t *testing.T) {
		dir := t.TempDir()
		task := shellTask(dir, "ver.a.0000", "ver", "a.out")
		task.Log = filepath.Join(dir, "log", "proctime", "ver", "a.log")
		task.Command = "echo hello > " + task.Log + " 2>&1; echo done > " + task.Outputs[0]

		require.NoError(t, Run(context.Background(), []*Task{task}, RunOptions{}))
		data, err := os.ReadFile(task.Log)
		require.NoError(t, err)
		assert.Equal(t, "hello\n", string(data))
	})

	t.Run("writes a benchmark record on success", func(t *testing.T) {
		dir := t.TempDir()
		task := shellTask(dir, "ver.a.0000", "ver", "a.out")
		task.Benchmark = filepath.Join(dir, "benchmarks", "ver", "a.tsv")

		require.NoError(t, Run(context.Background(), []*Task{task}, RunOptions{}))
		data, err := os.ReadFile(task.Benchmark)
		require.NoError(t, err)
		assert.Contains(t, string(data), "wall_time_s")
	})

	t.Run("no benchmark record on failure", func(t *testing.T) {
		dir := t.TempDir()
		task := shellTask(dir, "ver.a.0000", "ver", "a.out")
		task.Benchmark = filepath.Join(dir, "benchmarks", "ver", "a.tsv")
		task.Command = "exit 3"

		require.Error(t, Run(context.Background(), []*Task{task}, RunOptions{}))
		assert.NoFileExists(t, task.Benchmark)
	})
}
