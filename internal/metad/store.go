// Package metad is a read-only accessor over a legend-metadata style
// checkout: a directory tree of YAML and JSON documents addressed by dotted
// key paths such as simprod.config.tier.stp.l200p03.simconfig.
//
// A lookup path first walks directories, then a document basename, then
// nested mapping keys inside the document. Documents are parsed lazily and
// cached. The store never mutates its backing tree.
package metad

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// docExtensions are the recognized document suffixes, tried in order.
var docExtensions = []string{".yaml", ".yml", ".json"}

// Store provides nested key access over a metadata directory tree.
type Store struct {
	root string

	mu   sync.Mutex
	docs map[string]any // parsed documents keyed by file path
}

// Open validates that root is a readable directory and returns a Store
// over it. A missing or unreadable root is a SourceUnavailableError: the
// whole backing store is gone, not just one key.
func Open(root string) (*Store, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &SourceUnavailableError{Root: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &SourceUnavailableError{Root: root, Err: fmt.Errorf("not a directory")}
	}
	return &Store{root: root, docs: make(map[string]any)}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

// Get resolves a nested key path. It returns KeyNotFoundError if any
// segment is absent and SourceUnavailableError if a backing document cannot
// be read or parsed. A present-but-empty value (empty list, empty mapping)
// is returned as a found value.
func (s *Store) Get(keys ...string) (any, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("metadata lookup requires at least one key")
	}

	var cur any = dirRef(s.root)
	for i, key := range keys {
		next, err := s.descend(cur, key)
		if err != nil {
			if nf, ok := err.(*KeyNotFoundError); ok {
				nf.Path = keys[:i+1]
			}
			return nil, err
		}
		cur = next
	}

	if d, ok := cur.(dirRef); ok {
		// A path ending on a directory resolves to the mapping of its
		// entries, each loaded on access through a nested Get.
		return s.dirMapping(string(d))
	}
	return cur, nil
}

// GetMapping resolves a key path that must end on a mapping.
func (s *Store) GetMapping(keys ...string) (*Mapping, error) {
	v, err := s.Get(keys...)
	if err != nil {
		return nil, err
	}
	m, ok := v.(*Mapping)
	if !ok {
		return nil, fmt.Errorf("metadata path %q is not a mapping (got %T)",
			strings.Join(keys, "."), v)
	}
	return m, nil
}

// dirRef marks an unresolved directory during path traversal.
type dirRef string

func (s *Store) descend(cur any, key string) (any, error) {
	switch t := cur.(type) {
	case dirRef:
		dir := string(t)
		sub := filepath.Join(dir, key)
		if info, err := os.Stat(sub); err == nil && info.IsDir() {
			return dirRef(sub), nil
		}
		for _, ext := range docExtensions {
			path := sub + ext
			if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
				return s.loadDocument(path)
			}
		}
		return nil, &KeyNotFoundError{Missing: key}
	case *Mapping:
		v, ok := t.Get(key)
		if !ok {
			return nil, &KeyNotFoundError{Missing: key}
		}
		return v, nil
	default:
		// Scalar or sequence reached with path segments left over.
		return nil, &KeyNotFoundError{Missing: key}
	}
}

func (s *Store) loadDocument(path string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc, ok := s.docs[path]; ok {
		return doc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &SourceUnavailableError{Root: s.root, Err: err}
	}
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, &SourceUnavailableError{Root: s.root,
			Err: fmt.Errorf("parsing %s: %w", path, err)}
	}
	s.docs[path] = doc
	return doc, nil
}

// dirMapping materializes a directory as a Mapping from entry name to the
// loaded document or nested directory mapping. Entry names are sorted, as
// the file system carries no declaration order.
func (s *Store) dirMapping(dir string) (*Mapping, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &SourceUnavailableError{Root: s.root, Err: err}
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !e.IsDir() {
			ext := filepath.Ext(name)
			if !isDocExtension(ext) {
				continue
			}
			name = strings.TrimSuffix(name, ext)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	m := NewMapping()
	for _, name := range names {
		v, err := s.descend(dirRef(dir), name)
		if err != nil {
			return nil, err
		}
		if d, ok := v.(dirRef); ok {
			nested, err := s.dirMapping(string(d))
			if err != nil {
				return nil, err
			}
			v = nested
		}
		m.Set(name, v)
	}
	return m, nil
}

func isDocExtension(ext string) bool {
	for _, e := range docExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
