// Package testutil builds throwaway production areas for tests: a
// configuration file, a metadata tree, and macro templates under a
// t.TempDir, with sensible defaults that individual tests override.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tdixon97/legend-simflow/internal/config"
	"github.com/tdixon97/legend-simflow/internal/metad"
)

// Experiment is the experiment identifier used by every fixture.
const Experiment = "l200p03"

// Production is a self-contained on-disk production area.
type Production struct {
	// Dir is the area root; every configured path lives below it.
	Dir string
	// ConfigPath is the main configuration file.
	ConfigPath string

	extraHCL []string
}

// Option mutates a Production before its configuration file is written.
type Option func(*Production)

// WithHCL appends a raw snippet to the generated configuration file.
func WithHCL(snippet string) Option {
	return func(p *Production) {
		p.extraHCL = append(p.extraHCL, snippet)
	}
}

// WithBenchmark enables benchmark mode with the given per-tier primaries.
func WithBenchmark(nPrimaries map[string]int) Option {
	var entries []string
	for tier, n := range nPrimaries {
		entries = append(entries, fmt.Sprintf("    %s = %d", tier, n))
	}
	return WithHCL(fmt.Sprintf(
		"benchmark {\n  enabled = true\n  n_primaries = {\n%s\n  }\n}",
		strings.Join(entries, "\n")))
}

// WithSimlist sets the configured work list.
func WithSimlist(entries ...string) Option {
	return WithHCL(fmt.Sprintf("simlist = [%s]", quoteList(entries)))
}

// WithRunlist sets the configured run list.
func WithRunlist(runids ...string) Option {
	return WithHCL(fmt.Sprintf("runlist = [%s]", quoteList(runids)))
}

// WithRuncmd overrides the command line of one executable.
func WithRuncmd(name, cmdline string) Option {
	return WithHCL(fmt.Sprintf("runcmd {\n  %s = %q\n}", name, cmdline))
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, ", ")
}

// NewProduction lays out a production area under a fresh temporary
// directory and writes its configuration file. The metadata tree starts
// empty; populate it with WriteMetadata or WriteDefaultMetadata.
func NewProduction(t *testing.T, opts ...Option) *Production {
	t.Helper()

	p := &Production{Dir: t.TempDir()}
	p.ConfigPath = filepath.Join(p.Dir, "simflow-config.hcl")
	for _, opt := range opts {
		opt(p)
	}

	for _, sub := range []string{"inputs/metadata", "config/templates"} {
		require.NoError(t, os.MkdirAll(filepath.Join(p.Dir, sub), 0o755))
	}

	hcl := fmt.Sprintf(`experiment = %q

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
`, Experiment)
	if len(p.extraHCL) > 0 {
		hcl += "\n" + strings.Join(p.extraHCL, "\n\n") + "\n"
	}
	require.NoError(t, os.WriteFile(p.ConfigPath, []byte(hcl), 0o644))

	return p
}

// WriteMetadata writes one document into the metadata tree, creating
// parent directories. rel is relative to the metadata root and includes
// the extension.
func (p *Production) WriteMetadata(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(p.Dir, "inputs", "metadata", rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// WriteTemplate writes a macro template under the config area and returns
// its path relative to it, the form simconfig blocks reference.
func (p *Production) WriteTemplate(t *testing.T, name, content string) string {
	t.Helper()
	rel := filepath.Join("templates", name)
	path := filepath.Join(p.Dir, "config", rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return rel
}

// DefaultTemplate is a minimal remage macro template exercising the
// built-in and deferred substitutions.
const DefaultTemplate = `# test macro
/RMG/Manager/Randomization/Seed {SEED}
{GENERATOR}
{CONFINEMENT}
/run/beamOn {N_EVENTS}
`

// WriteDefaultMetadata populates the simprod config for the ver and stp
// tiers, plus the shared macro template:
//
//   - ver tier: "birds" (2 jobs), "clouds" (3 jobs)
//   - stp tier: "gamma-lines" (2 jobs, volume confinement) and
//     "from-vertices" (job count inherited from ver.birds)
func (p *Production) WriteDefaultMetadata(t *testing.T) {
	t.Helper()

	tpl := p.WriteTemplate(t, "default.mac", DefaultTemplate)

	p.WriteMetadata(t, "simprod/config/tier/ver/"+Experiment+".yaml", fmt.Sprintf(`
simconfig:
  birds:
    number_of_jobs: 2
    primaries_per_job: 1000
    generator: "~defines:calib-source"
    confinement: "~defines:inner"
    template: %[1]s
  clouds:
    number_of_jobs: 3
    primaries_per_job: 500
    generator: "~defines:calib-source"
    confinement: "~defines:inner"
    template: %[1]s
generators:
  calib-source:
    - /RMG/Generator/Select GPS
    - /gps/particle ion
confinement:
  inner: /RMG/Generator/Confine Volume
`, tpl))

	p.WriteMetadata(t, "simprod/config/tier/stp/"+Experiment+".yaml", fmt.Sprintf(`
simconfig:
  gamma-lines:
    number_of_jobs: 2
    primaries_per_job: 10000
    generator: "~defines:calib-source"
    confinement:
      - "~volumes.bulk:B_*"
      - "~volumes.surface:V0000[1-4]A"
    template: %[1]s
  from-vertices:
    vertices: birds
    primaries_per_job: 2000
    generator: "~defines:calib-source"
    confinement: "~defines:inner"
    template: %[1]s
generators:
  calib-source:
    - /RMG/Generator/Select GPS
    - /gps/particle ion
confinement:
  inner: /RMG/Generator/Confine Volume
`, tpl))
}

// Load parses the fixture's configuration and opens its metadata store.
func (p *Production) Load(t *testing.T) (*config.Config, *metad.Store) {
	t.Helper()

	cfg, err := config.Load(context.Background(), p.ConfigPath)
	require.NoError(t, err)
	store, err := metad.Open(cfg.Paths.Metadata)
	require.NoError(t, err)
	return cfg, store
}
