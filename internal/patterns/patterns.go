// Package patterns generates the canonical file system paths of every
// pipeline artifact. All functions are pure: the same configuration and
// identifiers always produce the same path, and each artifact category has
// exactly one template, defined here and nowhere else.
//
// Identifier vocabulary:
//
//   - simid: string identifier for a simulation run
//   - jobid: zero-padded 4-digit label for one job of a simulation run
//   - tier:  pipeline tier (ver, stp, hit, evt, pdf)
//   - runid: data-taking run identifier (evt tier and drift-time maps)
package patterns

import (
	"fmt"
	"path/filepath"

	"github.com/tdixon97/legend-simflow/internal/config"
)

// fileTypes is the tier-keyed extension table. It is total over the
// supported tier set: ver and stp consume rendered macro text, everything
// else moves lh5 data.
var fileTypes = struct {
	input  map[string]string
	output map[string]string
}{
	input: map[string]string{
		"ver": ".mac",
		"stp": ".mac",
		"hit": ".lh5",
		"evt": ".lh5",
		"pdf": ".lh5",
	},
	output: map[string]string{
		"ver": ".lh5",
		"stp": ".lh5",
		"hit": ".lh5",
		"evt": ".lh5",
		"pdf": ".lh5",
	},
}

// InputExt returns the input-artifact extension for a tier. An unknown
// tier is a programming error and panics.
func InputExt(tier string) string {
	ext, ok := fileTypes.input[tier]
	if !ok {
		panic(fmt.Sprintf("patterns: unsupported tier %q", tier))
	}
	return ext
}

// OutputExt returns the output-artifact extension for a tier.
func OutputExt(tier string) string {
	ext, ok := fileTypes.output[tier]
	if !ok {
		panic(fmt.Sprintf("patterns: unsupported tier %q", tier))
	}
	return ext
}

// Jobid formats a job index as a zero-padded fixed-width label.
func Jobid(i int) string {
	return fmt.Sprintf("%04d", i)
}

// simjobRelBasename is the shared relative basename of per-job artifacts:
// <simid>/<experiment>-<simid>_<jobid>.
func simjobRelBasename(experiment, simid, jobid string) string {
	return filepath.Join(simid, fmt.Sprintf("%s-%s_%s", experiment, simid, jobid))
}

// InputSimjobFilename returns the canonical input path for a simid at a
// tier: the rendered macro for macro tiers. The macro is shared by all
// jobs of a simid (per-job values arrive as command-line substitutions),
// so this path carries no jobid.
func InputSimjobFilename(cfg *config.Config, tier, simid string) string {
	name := fmt.Sprintf("%s-%s-tier_%s%s", cfg.Experiment, simid, tier, InputExt(tier))
	return filepath.Join(cfg.Paths.Macros, tier, name)
}

// InputSimidFilenames expands the job-qualified input pattern over job
// indices [0, n), in ascending job order.
func InputSimidFilenames(cfg *config.Config, n int, tier, simid string) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("%s-%s_%s-tier_%s%s",
			cfg.Experiment, simid, Jobid(i), tier, InputExt(tier))
		out = append(out, filepath.Join(cfg.Paths.Macros, tier, name))
	}
	return out
}

// OutputSimjobFilename returns the canonical output path for one job:
// <tier_root>/<simid>/<experiment>-<simid>_<jobid>-tier_<tier>.lh5.
func OutputSimjobFilename(cfg *config.Config, tier, simid, jobid string) string {
	rel := simjobRelBasename(cfg.Experiment, simid, jobid) +
		fmt.Sprintf("-tier_%s%s", tier, OutputExt(tier))
	return filepath.Join(cfg.Paths.Tier(tier), rel)
}

// OutputSimidFilenames expands the output pattern over job indices [0, n).
func OutputSimidFilenames(cfg *config.Config, n int, tier, simid string) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, OutputSimjobFilename(cfg, tier, simid, Jobid(i)))
	}
	return out
}

// OutputSimjobRegex returns a glob matching the outputs of any simid and
// jobid at a fixed tier. It is a pattern, not a concrete path.
func OutputSimjobRegex(cfg *config.Config, tier string) string {
	return filepath.Join(cfg.Paths.Tier(tier), "*",
		fmt.Sprintf("*-tier_%s%s", tier, OutputExt(tier)))
}

// LogFilename returns the log path for one job under a processing
// timestamp directory.
func LogFilename(cfg *config.Config, proctime, tier, simid, jobid string) string {
	rel := simjobRelBasename(cfg.Experiment, simid, jobid) + fmt.Sprintf("-tier_%s.log", tier)
	return filepath.Join(cfg.Paths.Log, proctime, tier, rel)
}

// BenchmarkFilename returns the benchmark (timing) file path for one job.
func BenchmarkFilename(cfg *config.Config, tier, simid, jobid string) string {
	rel := simjobRelBasename(cfg.Experiment, simid, jobid) + fmt.Sprintf("-tier_%s.tsv", tier)
	return filepath.Join(cfg.Paths.Benchmarks, tier, rel)
}

// PlotsFilepath returns the plots directory for a (tier, simid).
func PlotsFilepath(cfg *config.Config, tier, simid string) string {
	return filepath.Join(cfg.Paths.Plots, tier, simid)
}

// GeomFilename returns the GDML geometry file path.
func GeomFilename(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.Geom, cfg.Experiment+"-geom.gdml")
}

// GeomConfigFilename returns the geometry builder configuration path.
func GeomConfigFilename(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.Config, "geom", cfg.Experiment+"-geom-config.yaml")
}

// GeomLogFilename returns the geometry build log path.
func GeomLogFilename(cfg *config.Config, proctime string) string {
	return filepath.Join(cfg.Paths.Log, proctime, "geom", cfg.Experiment+"-geom.log")
}
