package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tdixon97/legend-simflow/internal/config"
	"github.com/tdixon97/legend-simflow/internal/metad"
	"github.com/tdixon97/legend-simflow/internal/patterns"
)

// crystalTypeIDs maps HPGe detector types to the type letter of crystal
// identifiers.
var crystalTypeIDs = map[string]string{
	"bege": "B",
	"coax": "C",
	"ppc":  "P",
	"icpc": "V",
}

// CrystalMeta derives a detector's crystal identifier from its diode
// metadata (type letter + zero-padded production order + crystal serial)
// and looks it up in the crystal database. A detector whose crystal has no
// record returns (nil, nil).
func CrystalMeta(store *metad.Store, diodeMeta *metad.Mapping) (*metad.Mapping, error) {
	typeV, ok := diodeMeta.Get("type")
	if !ok {
		return nil, fmt.Errorf("diode metadata has no 'type' field")
	}
	letter, ok := crystalTypeIDs[fmt.Sprintf("%v", typeV)]
	if !ok {
		return nil, fmt.Errorf("unknown HPGe detector type %q", typeV)
	}

	prodV, ok := diodeMeta.Get("production")
	if !ok {
		return nil, fmt.Errorf("diode metadata has no 'production' block")
	}
	prod, ok := prodV.(*metad.Mapping)
	if !ok {
		return nil, fmt.Errorf("diode 'production' block is not a mapping")
	}
	orderV, ok1 := prod.Get("order")
	crystalV, ok2 := prod.Get("crystal")
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("diode 'production' block is missing 'order' or 'crystal'")
	}
	order, ok := orderV.(int)
	if !ok {
		return nil, fmt.Errorf("diode production order is not an integer")
	}

	crystalName := fmt.Sprintf("%s%02d%v", letter, order, crystalV)

	db, err := store.GetMapping("hardware", "detectors", "germanium", "crystals")
	if err != nil {
		return nil, err
	}
	rec, ok := db.Get(crystalName)
	if !ok {
		return nil, nil
	}
	m, ok := rec.(*metad.Mapping)
	if !ok {
		return nil, fmt.Errorf("crystal record %q is not a mapping", crystalName)
	}
	return m, nil
}

// StartKey resolves the start timestamp of a runid of the form
// <experiment>-<period>-<run>-<datatype>.
func StartKey(store *metad.Store, runid string) (string, error) {
	parts := strings.Split(runid, "-")
	if len(parts) != 4 {
		return "", fmt.Errorf("runid '%s' is not in the format <experiment>-<period>-<run>-<datatype>", runid)
	}
	period, run, datatype := parts[1], parts[2], parts[3]

	info, err := store.GetMapping("datasets", "runinfo", period, run, datatype)
	if err != nil {
		return "", err
	}
	sk, ok := info.Get("start_key")
	if !ok {
		return "", fmt.Errorf("runinfo for '%s' has no 'start_key'", runid)
	}
	return fmt.Sprintf("%v", sk), nil
}

// gedsNamesQuery selects the names of all germanium channels from a
// channelmap document.
const gedsNamesQuery = `[?(@.system == 'geds')].name`

// dtmapCrystalValid checks the minimal crystal-record shape required to
// compute a drift-time map: an impurity curve with parameters and a scale
// correction.
func dtmapCrystalValid(crystal *metad.Mapping) bool {
	icV, ok := crystal.Get("impurity_curve")
	if !ok {
		return false
	}
	ic, ok := icV.(*metad.Mapping)
	if !ok {
		return false
	}
	if _, ok := ic.Get("parameters"); !ok {
		return false
	}
	corrV, ok := ic.Get("corrections")
	if !ok {
		return false
	}
	corr, ok := corrV.(*metad.Mapping)
	if !ok {
		return false
	}
	_, ok = corr.Get("scale")
	return ok
}

// HpgesValidForDtmap lists the HPGe detectors deployed in runid whose
// crystal metadata is complete enough to generate a drift-time map. This
// is a filter over the channelmap, not drift-time physics.
func HpgesValidForDtmap(cfg *config.Config, store *metad.Store, runid string) ([]string, error) {
	sk, err := StartKey(store, runid)
	if err != nil {
		return nil, err
	}
	chmap, err := store.ChannelmapOn(sk)
	if err != nil {
		return nil, err
	}

	geds, err := chmap.Query(gedsNamesQuery)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, v := range geds {
		names = append(names, fmt.Sprintf("%v", v))
	}
	sort.Strings(names)

	var hpges []string
	for _, name := range names {
		diode, err := store.GetMapping("hardware", "detectors", "germanium", "diodes", name)
		if err != nil {
			return nil, err
		}
		crystal, err := CrystalMeta(store, diode)
		if err != nil {
			return nil, err
		}
		if crystal != nil && dtmapCrystalValid(crystal) {
			hpges = append(hpges, name)
		}
	}
	return hpges, nil
}

// DtmapOutputs returns the drift-time map files to produce for a runid.
func DtmapOutputs(cfg *config.Config, store *metad.Store, runid string) ([]string, error) {
	hpges, err := HpgesValidForDtmap(cfg, store, runid)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(hpges))
	for _, hpge := range hpges {
		out = append(out, patterns.OutputDtmapFilename(cfg, runid, hpge))
	}
	return out, nil
}

// MergedDtmapOutputs returns the merged drift-time map file for every run
// in the configured runlist.
func MergedDtmapOutputs(cfg *config.Config) []string {
	out := make([]string, 0, len(cfg.Runlist))
	for _, runid := range cfg.Runlist {
		out = append(out, patterns.OutputDtmapMergedFilename(cfg, runid))
	}
	return out
}
