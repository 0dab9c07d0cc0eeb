package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tdixon97/legend-simflow/internal/config"
	"github.com/tdixon97/legend-simflow/internal/metad"
	"github.com/tdixon97/legend-simflow/internal/patterns"
	"github.com/tdixon97/legend-simflow/internal/simconfig"
)

// RunOptions parameterizes one remage invocation.
type RunOptions struct {
	// Geom is the GDML geometry file. Empty selects the canonical
	// geometry path for the experiment.
	Geom string
	// Threads passed to remage; values below 1 mean 1.
	Threads int
	// Output is the tiered output file this invocation produces.
	Output string
	// MacroFree inlines the substituted macro directives on the command
	// line instead of referencing the macro file.
	MacroFree bool
	// Seeds supplies the per-invocation random seed. Nil selects the
	// process-wide non-deterministic source.
	Seeds SeedSource
}

// RemageRun renders the macro for (simid, tier) and builds the shell
// command line invoking remage on it. The macro file write is the only
// side effect; the command is returned, not executed.
//
// Every call draws a fresh 32-bit seed: run-to-run reproducibility is the
// simulation's own concern (it logs its seed), not this layer's.
func RemageRun(cfg *config.Config, store *metad.Store, simid, tier string, opts RunOptions) (string, error) {
	block := simconfig.BlockPath(cfg.Experiment, tier, simid)

	simCfg, err := simconfig.Block(cfg, store, tier, simid)
	if err != nil {
		return "", err
	}

	macroText, macroPath, err := MakeRemageMacro(cfg, store, simid, tier)
	if err != nil {
		return "", err
	}

	// The benchmark override wins unconditionally when enabled.
	var nPrimaries int
	switch {
	case cfg.BenchmarkEnabled():
		n, ok := cfg.Benchmark.NPrimaries[tier]
		if !ok {
			return "", simconfig.Errorf(block,
				"benchmark mode enabled but no n_primaries entry for tier %q", tier)
		}
		nPrimaries = n
	case simCfg.HasPrimariesPerJob:
		nPrimaries = simCfg.PrimariesPerJob
	default:
		return "", simconfig.Errorf(block, "missing required field %q", "primaries_per_job")
	}

	seeds := opts.Seeds
	if seeds == nil {
		seeds = DefaultSeeds
	}
	cliSubs := [][2]string{
		{"N_EVENTS", strconv.Itoa(nPrimaries)},
		{"SEED", strconv.FormatUint(uint64(seeds.Uint32()), 10)},
	}

	geom := opts.Geom
	if geom == "" {
		geom = patterns.GeomFilename(cfg)
	}
	threads := opts.Threads
	if threads < 1 {
		threads = 1
	}
	if opts.Output == "" {
		return "", fmt.Errorf("remage run for %s.%s: output file not set", tier, simid)
	}

	cmd := remageExecutable(cfg)
	cmd = append(cmd,
		"--ignore-warnings",
		"--merge-output-files",
		"--log-level=detail",
		"--threads", strconv.Itoa(threads),
		"--gdml-files", geom,
		"--output-file", opts.Output,
	)

	if opts.MacroFree {
		// Substitute the per-job values directly into the macro body and
		// inline each remaining directive after the separator.
		for _, kv := range cliSubs {
			macroText = strings.ReplaceAll(macroText, "{"+kv[0]+"}", kv[1])
		}
		cmd = append(cmd, "--")
		for _, line := range strings.Split(macroText, "\n") {
			if trimmed := strings.TrimSpace(line); trimmed == "" || strings.HasPrefix(line, "#") {
				continue
			}
			cmd = append(cmd, line)
		}
	} else {
		cmd = append(cmd, "--macro-substitutions")
		for _, kv := range cliSubs {
			cmd = append(cmd, kv[0]+"="+kv[1])
		}
		cmd = append(cmd, "--", macroPath)
	}

	return ShellJoin(cmd), nil
}

// remageExecutable returns the remage command head, honoring a
// runcmd.remage override (split on whitespace, e.g. a container wrapper).
func remageExecutable(cfg *config.Config) []string {
	if override, ok := cfg.Runcmd["remage"]; ok && override != "" {
		return strings.Fields(override)
	}
	return []string{"remage"}
}

// shellSafe matches words that need no quoting in a POSIX shell.
var shellSafe = map[byte]bool{}

func init() {
	for _, r := range "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789@%+=:,./_-" {
		shellSafe[byte(r)] = true
	}
}

// ShellQuote quotes a single word for a POSIX shell.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for i := 0; i < len(s); i++ {
		if !shellSafe[s[i]] {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// ShellJoin joins words into a single shell-safe command line.
func ShellJoin(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = ShellQuote(w)
	}
	return strings.Join(quoted, " ")
}
