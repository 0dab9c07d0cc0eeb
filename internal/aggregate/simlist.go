package aggregate

import (
	"strings"

	"github.com/tdixon97/legend-simflow/internal/config"
	"github.com/tdixon97/legend-simflow/internal/metad"
	"github.com/tdixon97/legend-simflow/internal/patterns"
	"github.com/tdixon97/legend-simflow/internal/simconfig"
)

// EvtOutputs returns the evt-tier outputs for a simid: one file per run in
// the configured runlist.
func EvtOutputs(cfg *config.Config, simid string) []string {
	out := make([]string, 0, len(cfg.Runlist))
	for _, runid := range cfg.Runlist {
		out = append(out, patterns.OutputEvtFilename(cfg, simid, runid))
	}
	return out
}

// AllEvtOutputs concatenates EvtOutputs over all stp-tier simids.
func AllEvtOutputs(cfg *config.Config, store *metad.Store) ([]string, error) {
	simids, err := AllSimids(cfg, store, "stp")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, simid := range simids {
		out = append(out, EvtOutputs(cfg, simid)...)
	}
	return out, nil
}

// PdfOutputs returns the single aggregate pdf-tier output for a simid.
func PdfOutputs(cfg *config.Config, simid string) []string {
	return []string{patterns.OutputPdfFilename(cfg, simid)}
}

// AllPdfOutputs concatenates PdfOutputs over all stp-tier simids.
func AllPdfOutputs(cfg *config.Config, store *metad.Store) ([]string, error) {
	simids, err := AllSimids(cfg, store, "stp")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, simid := range simids {
		out = append(out, PdfOutputs(cfg, simid)...)
	}
	return out, nil
}

// ParseSimlist resolves a user work list into (tier, simid) pairs, keeping
// entry order and duplicates.
//
// Each entry is "<tier>.<simid>"; entries may also arrive as a single
// comma-separated string. A nil simlist falls back to the configured one.
func ParseSimlist(cfg *config.Config, simlist []string) ([]TierSimid, error) {
	if simlist == nil {
		simlist = cfg.Simlist
	}

	var out []TierSimid
	for _, item := range simlist {
		for _, e := range strings.Split(item, ",") {
			e = strings.TrimSpace(e)
			if e == "" {
				continue
			}
			parts := strings.Split(e, ".")
			if len(parts) != 2 {
				return nil, simconfig.Errorf("simflow-config.simlist",
					"item '%s' is not in the format <tier>.<simid>", e)
			}
			tier := strings.TrimSpace(parts[0])
			simid := strings.TrimSpace(parts[1])
			if !config.IsTier(tier) {
				return nil, simconfig.Errorf("simflow-config.simlist",
					"item '%s' names unknown tier '%s'", e, tier)
			}
			out = append(out, TierSimid{Tier: tier, Simid: simid})
		}
	}
	return out, nil
}

// ProcessSimlist resolves a user work list into the full set of required
// output paths, in input-entry order and without deduplication.
func ProcessSimlist(cfg *config.Config, store *metad.Store, simlist []string) ([]string, error) {
	items, err := ParseSimlist(cfg, simlist)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, it := range items {
		switch it.Tier {
		case "ver", "stp", "hit":
			paths, err := SimidOutputs(cfg, store, it.Tier, it.Simid, 0)
			if err != nil {
				return nil, err
			}
			out = append(out, paths...)
		case "evt":
			out = append(out, EvtOutputs(cfg, it.Simid)...)
		case "pdf":
			out = append(out, PdfOutputs(cfg, it.Simid)...)
		}
	}
	return out, nil
}
