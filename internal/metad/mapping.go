package metad

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Mapping is a string-keyed mapping that preserves the key order of the
// backing document. Simulation identifiers are iterated in declaration
// order, so plain Go maps are not enough here.
type Mapping struct {
	keys []string
	vals map[string]any
}

// NewMapping returns an empty Mapping.
func NewMapping() *Mapping {
	return &Mapping{vals: make(map[string]any)}
}

// Set inserts or replaces a key. Insertion order is kept for new keys.
func (m *Mapping) Set(key string, value any) {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = value
}

// Get returns the value for key and whether it is present. An empty or nil
// value stored under an existing key is a found value, not a miss.
func (m *Mapping) Get(key string) (any, bool) {
	v, ok := m.vals[key]
	return v, ok
}

// Keys returns the keys in declaration order.
func (m *Mapping) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of keys.
func (m *Mapping) Len() int { return len(m.keys) }

// Plain converts the mapping (recursively) into map[string]any / []any
// values, dropping key order. Used to hand subtrees to ojg path queries.
func (m *Mapping) Plain() map[string]any {
	out := make(map[string]any, len(m.keys))
	for _, k := range m.keys {
		out[k] = plainValue(m.vals[k])
	}
	return out
}

func plainValue(v any) any {
	switch t := v.(type) {
	case *Mapping:
		return t.Plain()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plainValue(e)
		}
		return out
	default:
		return v
	}
}

// decodeDocument parses a YAML or JSON document into Mapping/[]any/scalar
// values. YAML is a superset of JSON, so both formats go through the same
// node decoder, which is what preserves mapping key order.
func decodeDocument(data []byte) (any, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, nil
	}
	return decodeNode(root.Content[0])
}

func decodeNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.MappingNode:
		m := NewMapping()
		for i := 0; i+1 < len(n.Content); i += 2 {
			var key string
			if err := n.Content[i].Decode(&key); err != nil {
				return nil, fmt.Errorf("non-string mapping key at line %d: %w", n.Content[i].Line, err)
			}
			val, err := decodeNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(key, val)
		}
		return m, nil
	case yaml.SequenceNode:
		seq := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			val, err := decodeNode(c)
			if err != nil {
				return nil, err
			}
			seq = append(seq, val)
		}
		return seq, nil
	case yaml.AliasNode:
		return decodeNode(n.Alias)
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}
