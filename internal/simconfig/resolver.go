// Package simconfig resolves per-(tier, experiment, simid) simulation
// configuration blocks out of the metadata store.
//
// Every lookup failure, whatever its origin, is translated into a
// ConfigError carrying the dotted path of the offending config block, so
// that command-line users always see where in the metadata to look. Raw
// metadata errors never leak past this package.
package simconfig

import (
	"fmt"
	"strings"

	"github.com/tdixon97/legend-simflow/internal/config"
	"github.com/tdixon97/legend-simflow/internal/metad"
)

// SimConfig is the typed form of one simulation configuration block.
// References are parsed eagerly; the prefixed-string encoding does not
// survive past decoding.
type SimConfig struct {
	Generator   *Reference
	Confinement []Reference

	// Vertices names a ver-tier simid whose outputs provide the event
	// vertices for this simulation (a cross-tier dependency).
	Vertices string

	NumberOfJobs       int
	HasNumberOfJobs    bool
	PrimariesPerJob    int
	HasPrimariesPerJob bool

	// Template is the macro template path, relative to the config area
	// unless absolute.
	Template string

	// MacroSubstitutions are free-form user overrides, applied after the
	// built-in substitutions and able to shadow them.
	MacroSubstitutions map[string]string
}

// BlockPath formats the canonical dotted path of a config block, for error
// reporting. Extra segments (simid, field) are appended when given.
func BlockPath(experiment, tier string, extra ...string) string {
	parts := append([]string{"simprod", "config", "tier", tier, experiment, "simconfig"}, extra...)
	return strings.Join(parts, ".")
}

// storeKeys returns the metadata lookup path for the simconfig mapping of
// (tier, experiment).
func storeKeys(experiment, tier string, extra ...string) []string {
	return append([]string{"simprod", "config", "tier", tier, experiment, "simconfig"}, extra...)
}

// Simids returns the ordered mapping of all simids declared for a tier.
// Order is the declaration order in the metadata document.
func Simids(cfg *config.Config, store *metad.Store, tier string) (*metad.Mapping, error) {
	m, err := store.GetMapping(storeKeys(cfg.Experiment, tier)...)
	if err != nil {
		return nil, NewConfigError(BlockPath(cfg.Experiment, tier), err)
	}
	return m, nil
}

// Block resolves and decodes the configuration block for one simid.
func Block(cfg *config.Config, store *metad.Store, tier, simid string) (*SimConfig, error) {
	block := BlockPath(cfg.Experiment, tier, simid)

	raw, err := store.Get(storeKeys(cfg.Experiment, tier, simid)...)
	if err != nil {
		return nil, NewConfigError(block, err)
	}
	m, ok := raw.(*metad.Mapping)
	if !ok {
		return nil, Errorf(block, "block must be a mapping, got %T", raw)
	}
	return decodeBlock(block, m)
}

// Field returns the raw value of a single field of a simid's block,
// failing with a ConfigError if the field is absent.
func Field(cfg *config.Config, store *metad.Store, tier, simid, field string) (any, error) {
	block := BlockPath(cfg.Experiment, tier, simid)

	raw, err := store.Get(storeKeys(cfg.Experiment, tier, simid)...)
	if err != nil {
		return nil, NewConfigError(block, err)
	}
	m, ok := raw.(*metad.Mapping)
	if !ok {
		return nil, Errorf(block, "block must be a mapping, got %T", raw)
	}
	v, ok := m.Get(field)
	if !ok {
		return nil, Errorf(block, "missing required field %q", field)
	}
	return v, nil
}

// Generators returns the generator definitions dictionary for a tier.
func Generators(cfg *config.Config, store *metad.Store, tier string) (*metad.Mapping, error) {
	keys := []string{"simprod", "config", "tier", tier, cfg.Experiment, "generators"}
	m, err := store.GetMapping(keys...)
	if err != nil {
		return nil, NewConfigError(strings.Join(keys, "."), err)
	}
	return m, nil
}

// ConfinementDefs returns the confinement definitions dictionary for a tier.
func ConfinementDefs(cfg *config.Config, store *metad.Store, tier string) (*metad.Mapping, error) {
	keys := []string{"simprod", "config", "tier", tier, cfg.Experiment, "confinement"}
	m, err := store.GetMapping(keys...)
	if err != nil {
		return nil, NewConfigError(strings.Join(keys, "."), err)
	}
	return m, nil
}

func decodeBlock(block string, m *metad.Mapping) (*SimConfig, error) {
	out := &SimConfig{}

	if v, ok := m.Get("generator"); ok {
		s, ok := v.(string)
		if !ok {
			return nil, Errorf(block+".generator",
				"the field must be a string prefixed by ~defines:")
		}
		ref, err := ParseReference(s)
		if err != nil {
			return nil, NewConfigError(block+".generator", err)
		}
		if ref.Kind != RefDefine {
			return nil, Errorf(block+".generator",
				"the field must be a string prefixed by ~defines:")
		}
		out.Generator = &ref
	}

	if v, ok := m.Get("confinement"); ok {
		refs, err := decodeConfinement(v)
		if err != nil {
			return nil, NewConfigError(block+".confinement", err)
		}
		out.Confinement = refs
	}

	if v, ok := m.Get("vertices"); ok {
		s, ok := v.(string)
		if !ok || s == "" {
			return nil, Errorf(block+".vertices",
				"the field must be a non-empty simid string")
		}
		out.Vertices = s
	}

	if v, ok := m.Get("number_of_jobs"); ok {
		n, ok := asInt(v)
		if !ok || n <= 0 {
			return nil, Errorf(block+".number_of_jobs",
				"the field must be a positive integer, got %v", v)
		}
		out.NumberOfJobs = n
		out.HasNumberOfJobs = true
	}

	if v, ok := m.Get("primaries_per_job"); ok {
		n, ok := asInt(v)
		if !ok || n <= 0 {
			return nil, Errorf(block+".primaries_per_job",
				"the field must be a positive integer, got %v", v)
		}
		out.PrimariesPerJob = n
		out.HasPrimariesPerJob = true
	}

	if v, ok := m.Get("template"); ok {
		s, ok := v.(string)
		if !ok || s == "" {
			return nil, Errorf(block+".template",
				"the field must be a non-empty path string")
		}
		out.Template = s
	}

	if v, ok := m.Get("macro_substitutions"); ok {
		subs, ok := v.(*metad.Mapping)
		if !ok {
			return nil, Errorf(block+".macro_substitutions",
				"the field must be a mapping of substitution names to strings")
		}
		out.MacroSubstitutions = make(map[string]string, subs.Len())
		for _, k := range subs.Keys() {
			sv, _ := subs.Get(k)
			out.MacroSubstitutions[k] = fmt.Sprintf("%v", sv)
		}
	}

	return out, nil
}

// decodeConfinement accepts the three legal shapes of the confinement
// field: a single reference string of any kind, or a list of strings that
// must all be volume references.
func decodeConfinement(v any) ([]Reference, error) {
	switch t := v.(type) {
	case string:
		ref, err := ParseReference(t)
		if err != nil {
			return nil, confinementShapeError()
		}
		return []Reference{ref}, nil
	case []any:
		if len(t) == 0 {
			return nil, confinementShapeError()
		}
		refs := make([]Reference, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, confinementShapeError()
			}
			ref, err := ParseReference(s)
			if err != nil || !ref.IsVolume() {
				return nil, confinementShapeError()
			}
			refs = append(refs, ref)
		}
		return refs, nil
	default:
		return nil, confinementShapeError()
	}
}

func confinementShapeError() error {
	return fmt.Errorf("the field must be a str or list[str] prefixed by " +
		"~defines: / ~volumes.surface: / ~volumes.bulk:")
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}
