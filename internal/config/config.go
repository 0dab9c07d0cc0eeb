// Package config loads and validates the simflow run configuration.
//
// The configuration file is HCL. Required top-level fields are checked
// eagerly at load time and every path is coerced to an absolute path, so
// that no pattern or resolver function can fail late on a half-formed
// configuration.
package config

import "fmt"

// Tiers is the ordered set of supported simulation tiers. Order matters:
// it is the dependency order of the pipeline (vertices feed stp, and so on).
var Tiers = []string{"ver", "stp", "hit", "evt", "pdf"}

// IsTier reports whether s names a supported tier.
func IsTier(s string) bool {
	for _, t := range Tiers {
		if s == t {
			return true
		}
	}
	return false
}

// Paths holds the named output directories of a production area. All values
// are absolute by the time a Config is handed out.
type Paths struct {
	Metadata   string
	Macros     string
	Geom       string
	Config     string
	Log        string
	Benchmarks string
	Plots      string
	Dtmaps     string

	tiers map[string]string // tier name -> tier data directory
}

// Tier returns the data directory for a tier. Unknown tiers are a
// programming error, not a user error: the tier set is closed.
func (p *Paths) Tier(tier string) string {
	dir, ok := p.tiers[tier]
	if !ok {
		panic(fmt.Sprintf("config: no path registered for tier %q", tier))
	}
	return dir
}

// Benchmark holds the benchmark-mode override. When enabled, every simid
// collapses to a single job and NPrimaries[tier] replaces the per-simid
// primaries count.
type Benchmark struct {
	Enabled    bool
	NPrimaries map[string]int
}

// Config is the immutable per-run simflow configuration.
type Config struct {
	Experiment string
	Paths      Paths

	// Runlist and Simlist are the user-selected work items, already
	// expanded from their string / list / file forms.
	Runlist []string
	Simlist []string

	Benchmark *Benchmark

	// Runcmd maps executable names to override command lines, e.g.
	// runcmd { remage = "apptainer run remage.sif" }.
	Runcmd map[string]string

	// MetadataRepo/MetadataRef describe where to clone the metadata
	// checkout from if Paths.Metadata does not exist yet.
	MetadataRepo string
	MetadataRef  string
}

// BenchmarkEnabled reports whether benchmark mode is switched on.
func (c *Config) BenchmarkEnabled() bool {
	return c.Benchmark != nil && c.Benchmark.Enabled
}

// WithBenchmark returns a copy of the configuration with the benchmark
// override replaced. The receiver is not modified; configurations are
// read-only after load.
func (c *Config) WithBenchmark(b *Benchmark) *Config {
	out := *c
	out.Benchmark = b
	return &out
}
