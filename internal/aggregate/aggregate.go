// Package aggregate expands simulation configurations into the concrete
// set of jobs and artifact paths a production needs. It sits between the
// simconfig resolver (what is declared) and the patterns engine (where
// artifacts live), and is what the execution layer queries to learn the
// outputs of a target.
package aggregate

import (
	"github.com/tdixon97/legend-simflow/internal/config"
	"github.com/tdixon97/legend-simflow/internal/metad"
	"github.com/tdixon97/legend-simflow/internal/patterns"
	"github.com/tdixon97/legend-simflow/internal/simconfig"
	"github.com/tdixon97/legend-simflow/internal/tierdag"
)

// normTier maps a tier to the one whose simconfig governs it: hit, evt and
// pdf jobs are derived from the stp simulation set.
func normTier(tier string) string {
	if tier != "ver" && tier != "stp" {
		return "stp"
	}
	return tier
}

// SimidNjobs returns the number of jobs for a (tier, simid).
//
// Benchmark mode collapses every simid to a single representative job. A
// simid declaring vertices (and no explicit number_of_jobs) inherits the
// job count of the referenced ver-tier simid; ver is the base case of that
// recursion, so a ver simid declaring vertices of its own is rejected.
func SimidNjobs(cfg *config.Config, store *metad.Store, tier, simid string) (int, error) {
	tier = normTier(tier)

	if cfg.BenchmarkEnabled() {
		return 1, nil
	}

	block, err := simconfig.Block(cfg, store, tier, simid)
	if err != nil {
		return 0, err
	}

	if block.Vertices != "" && !block.HasNumberOfJobs {
		verBlock, err := simconfig.Block(cfg, store, "ver", block.Vertices)
		if err != nil {
			return 0, err
		}
		if verBlock.Vertices != "" {
			return 0, simconfig.Errorf(
				simconfig.BlockPath(cfg.Experiment, "ver", block.Vertices),
				"a 'ver' tier simid must not declare 'vertices' itself")
		}
		outputs, err := SimidOutputs(cfg, store, "ver", block.Vertices, 0)
		if err != nil {
			return 0, err
		}
		return len(outputs), nil
	}

	if block.HasNumberOfJobs {
		return block.NumberOfJobs, nil
	}

	return 0, simconfig.Errorf(
		simconfig.BlockPath(cfg.Experiment, tier, simid),
		"missing required field %q", "number_of_jobs")
}

// SimidInputs returns the full list of input files for a (tier, simid).
func SimidInputs(cfg *config.Config, store *metad.Store, tier, simid string) ([]string, error) {
	n, err := SimidNjobs(cfg, store, tier, simid)
	if err != nil {
		return nil, err
	}
	return patterns.InputSimidFilenames(cfg, n, tier, simid), nil
}

// SimidOutputs returns the full list of output files for a (tier, simid).
// maxFiles > 0 truncates to the first maxFiles paths; it never pads.
func SimidOutputs(cfg *config.Config, store *metad.Store, tier, simid string, maxFiles int) ([]string, error) {
	n, err := SimidNjobs(cfg, store, tier, simid)
	if err != nil {
		return nil, err
	}
	if maxFiles > 0 && maxFiles < n {
		n = maxFiles
	}
	return patterns.OutputSimidFilenames(cfg, n, tier, simid), nil
}

// VerticesInput returns the ver-tier output that provides vertices for an
// stp simid, or nil if the simid declares none.
func VerticesInput(cfg *config.Config, store *metad.Store, simid string) ([]string, error) {
	block, err := simconfig.Block(cfg, store, "stp", simid)
	if err != nil {
		return nil, err
	}
	if block.Vertices == "" {
		return nil, nil
	}
	return SimidOutputs(cfg, store, "ver", block.Vertices, 0)
}

// AllSimids returns all simids declared for a tier, in declaration order.
// Callers must not assume any alphabetic ordering.
func AllSimids(cfg *config.Config, store *metad.Store, tier string) ([]string, error) {
	m, err := simconfig.Simids(cfg, store, normTier(tier))
	if err != nil {
		return nil, err
	}
	return m.Keys(), nil
}

// AllSimidOutputs concatenates SimidOutputs over every declared simid.
func AllSimidOutputs(cfg *config.Config, store *metad.Store, tier string) ([]string, error) {
	simids, err := AllSimids(cfg, store, tier)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, simid := range simids {
		paths, err := SimidOutputs(cfg, store, tier, simid, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, paths...)
	}
	return out, nil
}

// TierSimid is one (tier, simid) work item.
type TierSimid struct {
	Tier  string
	Simid string
}

// CollectSimconfigs returns one (tier, simid) pair per declared simid per
// requested tier, concatenated in the order tiers were requested.
func CollectSimconfigs(cfg *config.Config, store *metad.Store, tiers []string) ([]TierSimid, error) {
	var out []TierSimid
	for _, tier := range tiers {
		simids, err := AllSimids(cfg, store, tier)
		if err != nil {
			return nil, err
		}
		for _, simid := range simids {
			out = append(out, TierSimid{Tier: tier, Simid: simid})
		}
	}
	return out, nil
}

// PlotsOutputs returns the diagnostic plot files produced for a (tier,
// simid). Only the stp tier produces plots at the moment.
func PlotsOutputs(cfg *config.Config, tier, simid string) []string {
	if tier != "stp" {
		return nil
	}
	return []string{
		patterns.PlotsFilepath(cfg, tier, simid) + "/event-vertices-tier_stp.png",
	}
}

// BuildGraph assembles the acyclic (tier, simid) dependency graph for the
// requested tiers, with edges from vertices references. A cycle is a
// configuration error.
func BuildGraph(cfg *config.Config, store *metad.Store, tiers []string) (*tierdag.Graph, error) {
	g := tierdag.New()

	items, err := CollectSimconfigs(cfg, store, tiers)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		g.AddNode(it.Tier, it.Simid)
	}

	for _, it := range items {
		if normTier(it.Tier) != "stp" {
			continue
		}
		block, err := simconfig.Block(cfg, store, "stp", it.Simid)
		if err != nil {
			return nil, err
		}
		if block.Vertices == "" {
			continue
		}
		g.AddNode("ver", block.Vertices)
		if err := g.AddEdge("ver", block.Vertices, it.Tier, it.Simid); err != nil {
			return nil, err
		}
	}

	if err := g.DetectCycles(); err != nil {
		return nil, simconfig.NewConfigError(
			simconfig.BlockPath(cfg.Experiment, "stp"), err)
	}
	return g, nil
}
