package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/tdixon97/legend-simflow/internal/ctxlog"
	"github.com/tdixon97/legend-simflow/internal/fsutil"
)

// fileSchema mirrors the top-level structure of a simflow-config.hcl file.
type fileSchema struct {
	Experiment   string        `hcl:"experiment"`
	Paths        *pathsSchema  `hcl:"paths,block"`
	Runlist      *cty.Value    `hcl:"runlist,optional"`
	Simlist      *cty.Value    `hcl:"simlist,optional"`
	Benchmark    *benchSchema  `hcl:"benchmark,block"`
	Runcmd       *runcmdSchema `hcl:"runcmd,block"`
	MetadataRepo string        `hcl:"metadata_repo,optional"`
	MetadataRef  string        `hcl:"metadata_ref,optional"`
}

type pathsSchema struct {
	Body hcl.Body `hcl:",remain"`
}

type runcmdSchema struct {
	Body hcl.Body `hcl:",remain"`
}

type benchSchema struct {
	Enabled    bool       `hcl:"enabled"`
	NPrimaries *cty.Value `hcl:"n_primaries,optional"`
}

// requiredPaths are the path names every production area must declare,
// beyond the per-tier data directories.
var requiredPaths = []string{
	"metadata", "macros", "geom", "config", "log", "benchmarks", "plots", "dtmaps",
}

// Load parses and validates a simflow configuration file. Relative paths
// are resolved against the directory containing the file.
func Load(ctx context.Context, path string) (*Config, error) {
	logger := ctxlog.FromContext(ctx)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", path, diags)
	}

	var raw fileSchema
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("decoding %s: %w", path, diags)
	}

	if raw.Experiment == "" {
		return nil, fmt.Errorf("%s: 'experiment' must not be empty", path)
	}
	if raw.Paths == nil {
		return nil, fmt.Errorf("%s: missing required 'paths' block", path)
	}

	baseDir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}

	paths, err := decodePaths(raw.Paths.Body, baseDir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	cfg := &Config{
		Experiment:   raw.Experiment,
		Paths:        *paths,
		MetadataRepo: raw.MetadataRepo,
		MetadataRef:  raw.MetadataRef,
	}

	if cfg.Runlist, err = someList(raw.Runlist, baseDir); err != nil {
		return nil, fmt.Errorf("%s: runlist: %w", path, err)
	}
	if cfg.Simlist, err = someList(raw.Simlist, baseDir); err != nil {
		return nil, fmt.Errorf("%s: simlist: %w", path, err)
	}

	if raw.Benchmark != nil {
		b := &Benchmark{Enabled: raw.Benchmark.Enabled}
		if b.NPrimaries, err = decodeNPrimaries(raw.Benchmark.NPrimaries); err != nil {
			return nil, fmt.Errorf("%s: benchmark.n_primaries: %w", path, err)
		}
		cfg.Benchmark = b
	}

	if raw.Runcmd != nil {
		if cfg.Runcmd, err = decodeStringAttrs(raw.Runcmd.Body); err != nil {
			return nil, fmt.Errorf("%s: runcmd: %w", path, err)
		}
	}

	logger.Debug("configuration loaded",
		"path", path, "experiment", cfg.Experiment,
		"benchmark", cfg.BenchmarkEnabled())
	return cfg, nil
}

func decodePaths(body hcl.Body, baseDir string) (*Paths, error) {
	attrs, err := decodeStringAttrs(body)
	if err != nil {
		return nil, fmt.Errorf("paths: %w", err)
	}

	resolve := func(name string) (string, error) {
		p, ok := attrs[name]
		if !ok {
			return "", fmt.Errorf("paths: missing required entry %q", name)
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(baseDir, p)
		}
		return filepath.Clean(p), nil
	}

	out := &Paths{tiers: make(map[string]string, len(Tiers))}
	dests := map[string]*string{
		"metadata":   &out.Metadata,
		"macros":     &out.Macros,
		"geom":       &out.Geom,
		"config":     &out.Config,
		"log":        &out.Log,
		"benchmarks": &out.Benchmarks,
		"plots":      &out.Plots,
		"dtmaps":     &out.Dtmaps,
	}
	for _, name := range requiredPaths {
		p, err := resolve(name)
		if err != nil {
			return nil, err
		}
		*dests[name] = p
	}
	for _, tier := range Tiers {
		p, err := resolve("tier_" + tier)
		if err != nil {
			return nil, err
		}
		out.tiers[tier] = p
	}
	return out, nil
}

func decodeStringAttrs(body hcl.Body) (map[string]string, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	out := make(map[string]string, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		if val.Type() != cty.String {
			return nil, fmt.Errorf("entry %q must be a string", name)
		}
		out[name] = val.AsString()
	}
	return out, nil
}

// someList interprets a string-or-list field. A string naming a readable
// file expands to one item per non-empty line; any other string is a
// single-item list.
func someList(v *cty.Value, baseDir string) ([]string, error) {
	if v == nil || v.IsNull() {
		return nil, nil
	}

	if v.Type() == cty.String {
		s := v.AsString()
		path := s
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		if fsutil.IsFile(path) {
			lines, err := fsutil.ReadLines(path)
			if err != nil {
				return nil, err
			}
			var out []string
			for _, line := range lines {
				if line != "" {
					out = append(out, line)
				}
			}
			return out, nil
		}
		return []string{s}, nil
	}

	if v.Type().IsTupleType() || v.Type().IsListType() {
		var out []string
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			if ev.Type() != cty.String {
				return nil, fmt.Errorf("list elements must be strings")
			}
			out = append(out, ev.AsString())
		}
		return out, nil
	}

	return nil, fmt.Errorf("must be a string or a list of strings")
}

func decodeNPrimaries(v *cty.Value) (map[string]int, error) {
	if v == nil || v.IsNull() {
		return nil, nil
	}
	if !v.Type().IsObjectType() && !v.Type().IsMapType() {
		return nil, fmt.Errorf("must be a mapping from tier to primaries count")
	}

	out := make(map[string]int)
	for it := v.ElementIterator(); it.Next(); {
		kv, ev := it.Element()
		tier := kv.AsString()
		if !IsTier(tier) {
			return nil, fmt.Errorf("unknown tier %q", tier)
		}
		n, _ := ev.AsBigFloat().Int64()
		if n <= 0 {
			return nil, fmt.Errorf("tier %q: primaries count must be positive", tier)
		}
		out[tier] = int(n)
	}
	return out, nil
}
