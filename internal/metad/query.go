package metad

import (
	"fmt"
	"strings"

	"github.com/ohler55/ojg/jp"
)

// Query evaluates a JSONPath expression against the subtree at keys. The
// subtree is flattened to plain maps and slices first, so key order is not
// meaningful inside query results.
func (s *Store) Query(expr string, keys ...string) ([]any, error) {
	v, err := s.Get(keys...)
	if err != nil {
		return nil, err
	}
	return evalQuery(expr, plainValue(v))
}

// Query evaluates a JSONPath expression against the mapping.
func (m *Mapping) Query(expr string) ([]any, error) {
	return evalQuery(expr, m.Plain())
}

func evalQuery(expr string, v any) ([]any, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid metadata query %q: %w", expr, err)
	}
	return x.Get(v), nil
}

// ChannelmapOn returns the hardware channelmap valid at the given timestamp
// (compact UTC form, e.g. 20220602T000000Z). Channelmap documents carry
// their validity timestamp as the last dash-separated token of the
// basename; the newest map not younger than ts wins.
func (s *Store) ChannelmapOn(ts string) (*Mapping, error) {
	maps, err := s.GetMapping("hardware", "configuration", "channelmaps")
	if err != nil {
		return nil, err
	}

	best := ""
	for _, name := range maps.Keys() {
		idx := strings.LastIndex(name, "-")
		if idx < 0 {
			continue
		}
		validFrom := name[idx+1:]
		if validFrom <= ts && (best == "" || validFrom > bestValidity(best)) {
			best = name
		}
	}
	if best == "" {
		return nil, &KeyNotFoundError{
			Path:    []string{"hardware", "configuration", "channelmaps", ts},
			Missing: ts,
		}
	}

	v, _ := maps.Get(best)
	m, ok := v.(*Mapping)
	if !ok {
		return nil, fmt.Errorf("channelmap %q is not a mapping (got %T)", best, v)
	}
	return m, nil
}

func bestValidity(name string) string {
	return name[strings.LastIndex(name, "-")+1:]
}
