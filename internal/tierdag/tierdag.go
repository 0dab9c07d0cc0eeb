// Package tierdag models the cross-tier dependency structure of a
// production as a small acyclic graph. Nodes are (tier, simid) pairs;
// edges come from vertices references (an stp simid depending on the
// output job set of a ver simid). Cycles are configuration errors and are
// rejected, never silently tolerated.
package tierdag

import (
	"fmt"
	"sort"
	"sync"
)

// NodeID is the canonical "<tier>.<simid>" string form of a node.
func NodeID(tier, simid string) string {
	return tier + "." + simid
}

// Graph is a dependency graph over (tier, simid) nodes. Operations are
// safe for concurrent use.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]*node
}

type node struct {
	id         string
	tier       string
	simid      string
	deps       map[string]*node
	dependents map[string]*node
}

// New returns an initialized empty Graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*node)}
}

// AddNode registers a (tier, simid) node. Adding an existing node is a no-op.
func (g *Graph) AddNode(tier, simid string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := NodeID(tier, simid)
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = &node{
		id:         id,
		tier:       tier,
		simid:      simid,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
}

// AddEdge records that (toTier, toSimid) depends on (fromTier, fromSimid).
// Both nodes must exist; self-edges are rejected.
func (g *Graph) AddEdge(fromTier, fromSimid, toTier, toSimid string) error {
	fromID := NodeID(fromTier, fromSimid)
	toID := NodeID(toTier, toSimid)
	if fromID == toID {
		return fmt.Errorf("self-referential dependency not allowed: %s", fromID)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	from, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("dependency node not found: %s", fromID)
	}
	to, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("dependent node not found: %s", toID)
	}

	to.deps[fromID] = from
	from.dependents[toID] = to
	return nil
}

// Dependencies returns the IDs of the nodes id depends on.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	deps := make([]string, 0, len(n.deps))
	for depID := range n.deps {
		deps = append(deps, depID)
	}
	return deps, nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// DetectCycles returns a non-nil error if the graph contains a cycle,
// naming a node involved in it.
func (g *Graph) DetectCycles() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *node) error
	visit = func(n *node) error {
		if permanent[n.id] {
			return nil
		}
		if temporary[n.id] {
			return fmt.Errorf("dependency cycle detected involving '%s'", n.id)
		}
		temporary[n.id] = true
		for _, dep := range n.deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		delete(temporary, n.id)
		permanent[n.id] = true
		return nil
	}

	for _, n := range g.nodes {
		if !permanent[n.id] {
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}

// TopoOrder returns the node IDs in a dependency-respecting order:
// every node appears after all of its dependencies. The graph must be
// acyclic; call DetectCycles first.
func (g *Graph) TopoOrder() ([]string, error) {
	if err := g.DetectCycles(); err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(map[string]bool)
	var order []string

	var visit func(n *node)
	visit = func(n *node) {
		if visited[n.id] {
			return
		}
		visited[n.id] = true
		for _, dep := range n.deps {
			visit(dep)
		}
		order = append(order, n.id)
	}

	// Deterministic outer iteration keeps the order stable across runs.
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		visit(g.nodes[id])
	}
	return order, nil
}
