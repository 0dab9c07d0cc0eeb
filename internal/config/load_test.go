package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalPaths = `
paths {
  metadata   = "inputs/metadata"
  macros     = "generated/macros"
  geom       = "inputs/geom"
  config     = "config"
  log        = "generated/log"
  benchmarks = "generated/benchmarks"
  plots      = "generated/plots"
  dtmaps     = "generated/dtmaps"
  tier_ver   = "generated/tier/ver"
  tier_stp   = "generated/tier/stp"
  tier_hit   = "generated/tier/hit"
  tier_evt   = "generated/tier/evt"
  tier_pdf   = "generated/tier/pdf"
}
`

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "simflow-config.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("paths are absolutized against the config directory", func(t *testing.T) {
		dir := t.TempDir()
		path := writeConfig(t, dir, `experiment = "l200p03"`+minimalPaths)

		cfg, err := Load(ctx, path)
		require.NoError(t, err)

		assert.Equal(t, "l200p03", cfg.Experiment)
		assert.Equal(t, filepath.Join(dir, "inputs", "metadata"), cfg.Paths.Metadata)
		assert.Equal(t, filepath.Join(dir, "generated", "tier", "stp"), cfg.Paths.Tier("stp"))
		assert.False(t, cfg.BenchmarkEnabled())
	})

	t.Run("absolute paths pass through", func(t *testing.T) {
		dir := t.TempDir()
		content := `experiment = "l200p03"
paths {
  metadata   = "/data/meta"
  macros     = "generated/macros"
  geom       = "inputs/geom"
  config     = "config"
  log        = "generated/log"
  benchmarks = "generated/benchmarks"
  plots      = "generated/plots"
  dtmaps     = "generated/dtmaps"
  tier_ver   = "generated/tier/ver"
  tier_stp   = "generated/tier/stp"
  tier_hit   = "generated/tier/hit"
  tier_evt   = "generated/tier/evt"
  tier_pdf   = "generated/tier/pdf"
}
`
		path := writeConfig(t, dir, content)

		cfg, err := Load(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "/data/meta", cfg.Paths.Metadata)
	})

	t.Run("missing experiment", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), `experiment = ""`+minimalPaths)
		_, err := Load(ctx, path)
		assert.ErrorContains(t, err, "'experiment' must not be empty")
	})

	t.Run("missing required path entry", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), `experiment = "l200p03"
paths {
  metadata = "inputs/metadata"
}
`)
		_, err := Load(ctx, path)
		assert.ErrorContains(t, err, "missing required entry")
	})

	t.Run("simlist as inline list", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(),
			`experiment = "l200p03"`+minimalPaths+
				"\nsimlist = [\"stp.gamma-lines\", \"ver.birds\"]")
		cfg, err := Load(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, []string{"stp.gamma-lines", "ver.birds"}, cfg.Simlist)
	})

	t.Run("simlist as file of lines", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "simlist.txt"),
			[]byte("stp.gamma-lines\n\nstp.alpha-chain\n"), 0o644))
		path := writeConfig(t, dir,
			`experiment = "l200p03"`+minimalPaths+"\nsimlist = \"simlist.txt\"")

		cfg, err := Load(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, []string{"stp.gamma-lines", "stp.alpha-chain"}, cfg.Simlist)
	})

	t.Run("simlist as plain string", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(),
			`experiment = "l200p03"`+minimalPaths+"\nsimlist = \"stp.gamma-lines\"")
		cfg, err := Load(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, []string{"stp.gamma-lines"}, cfg.Simlist)
	})

	t.Run("benchmark block", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(),
			`experiment = "l200p03"`+minimalPaths+`
benchmark {
  enabled = true
  n_primaries = {
    ver = 1000
    stp = 200
  }
}
`)
		cfg, err := Load(ctx, path)
		require.NoError(t, err)
		assert.True(t, cfg.BenchmarkEnabled())
		assert.Equal(t, map[string]int{"ver": 1000, "stp": 200}, cfg.Benchmark.NPrimaries)
	})

	t.Run("benchmark with unknown tier", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(),
			`experiment = "l200p03"`+minimalPaths+`
benchmark {
  enabled = true
  n_primaries = {
    raw = 10
  }
}
`)
		_, err := Load(ctx, path)
		assert.ErrorContains(t, err, "unknown tier")
	})

	t.Run("runcmd overrides", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(),
			`experiment = "l200p03"`+minimalPaths+`
runcmd {
  remage = "apptainer run remage.sif remage"
}
`)
		cfg, err := Load(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "apptainer run remage.sif remage", cfg.Runcmd["remage"])
	})

	t.Run("unparseable file", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), `experiment = `)
		_, err := Load(ctx, path)
		assert.Error(t, err)
	})
}

func TestIsTier(t *testing.T) {
	for _, tier := range Tiers {
		assert.True(t, IsTier(tier), tier)
	}
	assert.False(t, IsTier("raw"))
	assert.False(t, IsTier(""))
}

func TestPathsTierPanicsOnUnknown(t *testing.T) {
	p := &Paths{tiers: map[string]string{"stp": "/x"}}
	assert.Equal(t, "/x", p.Tier("stp"))
	assert.Panics(t, func() { p.Tier("raw") })
}

func TestWithBenchmark(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.BenchmarkEnabled())

	b := cfg.WithBenchmark(&Benchmark{Enabled: true, NPrimaries: map[string]int{"stp": 5}})
	assert.True(t, b.BenchmarkEnabled())
	assert.False(t, cfg.BenchmarkEnabled(), "original is untouched")
}
