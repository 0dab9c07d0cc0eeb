package simconfig

import (
	"fmt"
	"strings"
)

// RefKind discriminates the reference forms a generator or confinement
// field may take. The on-disk encoding is a prefixed string
// (~defines:<key>, ~volumes.surface:<glob>, ~volumes.bulk:<glob>); parsing
// happens once, here, so the rest of the pipeline never inspects prefixes.
type RefKind int

const (
	// RefDefine points into the generators/confinement dictionaries of
	// the tier+experiment metadata block.
	RefDefine RefKind = iota
	// RefSurfaceVolume confines to the surface of volumes matching a glob.
	RefSurfaceVolume
	// RefBulkVolume confines to the bulk of volumes matching a glob.
	RefBulkVolume
)

func (k RefKind) String() string {
	switch k {
	case RefDefine:
		return "defines"
	case RefSurfaceVolume:
		return "volumes.surface"
	case RefBulkVolume:
		return "volumes.bulk"
	default:
		return fmt.Sprintf("RefKind(%d)", int(k))
	}
}

// Reference is a parsed symbolic reference.
type Reference struct {
	Kind RefKind
	// Key is the dictionary key (RefDefine) or the volume glob pattern
	// (RefSurfaceVolume, RefBulkVolume).
	Key string
}

// IsVolume reports whether the reference selects physical volumes.
func (r Reference) IsVolume() bool {
	return r.Kind == RefSurfaceVolume || r.Kind == RefBulkVolume
}

var refPrefixes = []struct {
	prefix string
	kind   RefKind
}{
	{"~defines:", RefDefine},
	{"~volumes.surface:", RefSurfaceVolume},
	{"~volumes.bulk:", RefBulkVolume},
}

// ParseReference parses a prefixed reference string. Anything that is not
// one of the three known schemes is an error; there is no pass-through for
// unprefixed strings.
func ParseReference(s string) (Reference, error) {
	for _, p := range refPrefixes {
		if strings.HasPrefix(s, p.prefix) {
			key := strings.TrimPrefix(s, p.prefix)
			if key == "" {
				return Reference{}, fmt.Errorf("reference %q has an empty key", s)
			}
			return Reference{Kind: p.kind, Key: key}, nil
		}
	}
	return Reference{}, fmt.Errorf(
		"%q is not a valid reference: expected a string prefixed by "+
			"~defines: / ~volumes.surface: / ~volumes.bulk:", s)
}
